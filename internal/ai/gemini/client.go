package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m-nakagawa/cookmark/internal/ai"
)

// Generate implements ai.Generator against the generateContent REST endpoint.
// With opts.SearchGrounding set, the request carries the google_search tool so
// the model can pull live results into its context.
func (c *Client) Generate(ctx context.Context, prompt string, opts ai.Options) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("gemini.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"search_grounding", opts.SearchGrounding,
	)

	body := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": prompt}}},
		},
	}
	if opts.SearchGrounding {
		body["tools"] = []map[string]any{{"google_search": map[string]any{}}}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") +
		"/v1beta/models/" + c.cfg.Model + ":generateContent"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("gemini.generate.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("gemini.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	// Blocked or empty candidates surface as empty text, not a parse error.
	// Concatenate every text-bearing part of the first candidate.
	var b strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		finish := ""
		if len(resp.Candidates) > 0 {
			finish = resp.Candidates[0].FinishReason
		}
		c.logger.Error("gemini.generate.empty",
			"req_id", rid, "finish_reason", finish,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", ai.ErrEmptyResponse
	}

	c.logger.Info("gemini.generate.ok",
		"req_id", rid,
		"response_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("gemini response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// keep the raw body in the error: quota markers like
		// RESOURCE_EXHAUSTED live there
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
