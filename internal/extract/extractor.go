package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/ai"
)

const maxPageBodyBytes = 10 << 20

// JSONCaller is the AI gateway capability the pipeline depends on.
type JSONCaller interface {
	CallForJSON(ctx context.Context, prompt string, opts ai.Options) (map[string]any, error)
}

// CategorySource supplies the known category names used to bias the model's
// classification. May be nil when no store is attached (CLI usage).
type CategorySource interface {
	CategoryNames(ctx context.Context) ([]string, error)
}

// Config for the extraction service.
type Config struct {
	UserAgent    string        // default "Mozilla/5.0 (compatible; CookBookmarkBot/1.0)"
	FetchTimeout time.Duration // page download timeout
}

// Service runs the whole pipeline: fetch page (URL mode), harvest signals,
// build the prompt, one gateway call, normalize.
type Service struct {
	gateway    JSONCaller
	categories CategorySource
	httpClient *http.Client
	cfg        Config
	logger     *slog.Logger
}

func NewService(gateway JSONCaller, categories CategorySource, cfg Config, logger *slog.Logger) *Service {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; CookBookmarkBot/1.0)"
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway:    gateway,
		categories: categories,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// ExtractFromURL downloads the page and runs the extraction pipeline on it.
func (s *Service) ExtractFromURL(ctx context.Context, rawURL string) (*Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	rawURL = strings.TrimSpace(rawURL)
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	s.logger.Info("extract.url.start", "req_id", rid, "url", rawURL)

	html, err := s.fetchPage(ctx, rawURL)
	if err != nil {
		s.logger.Warn("extract.url.fetch_failed", "req_id", rid, "url", rawURL, "error", err)
		return nil, err
	}

	sig := ParsePageSignals(html, rawURL)
	s.logger.Info("extract.url.signals",
		"req_id", rid,
		"site_name", sig.SiteName,
		"hero_image", sig.HeroImageURL != "",
		"text_len", len(sig.PlainText),
		"structured_steps", len(sig.StructuredSteps),
		"candidate_images", len(sig.CandidateImages),
	)

	prompt := BuildPrompt(PromptInput{
		Signals:    sig,
		Categories: s.categoryNames(ctx, rid),
	})

	payload, err := s.gateway.CallForJSON(ctx, prompt, ai.Options{SearchGrounding: true})
	if err != nil {
		return nil, err
	}
	if nr := sentinelError(payload); nr != nil {
		s.logger.Info("extract.url.no_recipe", "req_id", rid, "message", nr.Message)
		return nil, nr
	}

	res := Normalize(payload)
	if res.ImageURL == "" {
		res.ImageURL = sig.HeroImageURL
	}
	res.SiteName = sig.SiteName
	s.checkResultShape(rid, res)

	s.logger.Info("extract.url.ok",
		"req_id", rid,
		"title", res.Title,
		"ingredients", len(res.Ingredients),
		"steps", len(res.Steps),
		"category", res.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ExtractFromText runs the pipeline on pasted text. No page fetch and no
// site name; the source URL, when given, is validated only.
func (s *Service) ExtractFromText(ctx context.Context, text, sourceURL string) (*Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if sourceURL = strings.TrimSpace(sourceURL); sourceURL != "" {
		if err := validateURL(sourceURL); err != nil {
			return nil, err
		}
	}

	s.logger.Info("extract.text.start", "req_id", rid, "text_len", len(text), "has_source_url", sourceURL != "")

	prompt := BuildPrompt(PromptInput{
		Text:       truncateRunes(text, PastedTextLimit),
		Categories: s.categoryNames(ctx, rid),
	})

	payload, err := s.gateway.CallForJSON(ctx, prompt, ai.Options{})
	if err != nil {
		return nil, err
	}
	if nr := sentinelError(payload); nr != nil {
		s.logger.Info("extract.text.no_recipe", "req_id", rid, "message", nr.Message)
		return nil, nr
	}

	res := Normalize(payload)
	s.checkResultShape(rid, res)

	s.logger.Info("extract.text.ok",
		"req_id", rid,
		"title", res.Title,
		"ingredients", len(res.Ingredients),
		"steps", len(res.Steps),
		"category", res.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: malformed url %q", ErrInvalidInput, rawURL)
	}
	return nil
}

func (s *Service) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{Err: err}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Err: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			s.logger.Warn("page response body close error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodyBytes))
	if err != nil {
		return "", &FetchError{Err: err}
	}
	return string(body), nil
}

// categoryNames is best-effort: a store failure degrades to free-form
// classification instead of blocking the pipeline.
func (s *Service) categoryNames(ctx context.Context, rid string) []string {
	if s.categories == nil {
		return nil
	}
	names, err := s.categories.CategoryNames(ctx)
	if err != nil {
		s.logger.Warn("extract.categories_unavailable", "req_id", rid, "error", err)
		return nil
	}
	return names
}

// checkResultShape cross-checks the normalized result against the canonical
// schema. Normalization is total, so a mismatch is a bug worth logging, never
// a request failure.
func (s *Service) checkResultShape(rid string, res *Result) {
	b, err := json.Marshal(res)
	if err != nil {
		s.logger.Error("extract.result_marshal_failed", "req_id", rid, "error", err)
		return
	}
	if err := ValidateAgainstSchema(BuildRecipeJSONSchema(), b); err != nil {
		s.logger.Error("extract.result_schema_mismatch", "req_id", rid, "error", err)
	}
}
