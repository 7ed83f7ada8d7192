package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/m-nakagawa/cookmark/internal/ai"
	"github.com/m-nakagawa/cookmark/internal/extract"
)

type stubExtractor struct {
	res *extract.Result
	err error
}

func (s *stubExtractor) ExtractFromURL(context.Context, string) (*extract.Result, error) {
	return s.res, s.err
}

func (s *stubExtractor) ExtractFromText(context.Context, string, string) (*extract.Result, error) {
	return s.res, s.err
}

func newExtractTestRouter(t *testing.T, ex Extractor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &ExtractHandler{extractor: ex, logger: slog.New(slog.DiscardHandler)}
	r.POST("/api/recipes/extract", h.ExtractFromURL)
	r.POST("/api/recipes/extract-text", h.ExtractFromText)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return payload.Error
}

func TestExtractFromURL_MissingURL(t *testing.T) {
	r := newExtractTestRouter(t, &stubExtractor{})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"blank url", `{"url": "   "}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/recipes/extract", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if got := errorMessage(t, w); got != msgURLRequired {
				t.Errorf("error = %q, want %q", got, msgURLRequired)
			}
		})
	}
}

func TestExtractFromText_MissingText(t *testing.T) {
	r := newExtractTestRouter(t, &stubExtractor{})
	w := doJSON(t, r, http.MethodPost, "/api/recipes/extract-text", `{"text": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := errorMessage(t, w); got != msgTextRequired {
		t.Errorf("error = %q, want %q", got, msgTextRequired)
	}
}

func TestExtract_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "invalid url",
			err:        extract.ErrInvalidInput,
			wantStatus: http.StatusBadRequest,
			wantMsg:    msgInvalidURL,
		},
		{
			name:       "fetch failed with status",
			err:        &extract.FetchError{StatusCode: 404},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "ページの取得に失敗しました (404)",
		},
		{
			name:       "fetch failed network",
			err:        &extract.FetchError{Err: errors.New("dial tcp: timeout")},
			wantStatus: http.StatusBadGateway,
			wantMsg:    msgFetchFailed,
		},
		{
			name:       "no recipe passthrough",
			err:        &extract.NoRecipeError{Message: "レシピ情報が見つかりませんでした"},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "レシピ情報が見つかりませんでした",
		},
		{
			name:       "rate limited",
			err:        ai.ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    msgRateLimited,
		},
		{
			name:       "wrapped rate limit",
			err:        &wrapErr{inner: ai.ErrRateLimited},
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    msgRateLimited,
		},
		{
			name:       "all providers failed",
			err:        &wrapErr{inner: ai.ErrAllProvidersFailed},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgAllAIFailed,
		},
		{
			name:       "empty model response",
			err:        &wrapErr{inner: ai.ErrEmptyResponse},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgEmptyAI,
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgParseFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newExtractTestRouter(t, &stubExtractor{err: tt.err})
			w := doJSON(t, r, http.MethodPost, "/api/recipes/extract", `{"url": "https://example.com/r"}`)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := errorMessage(t, w); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

type wrapErr struct{ inner error }

func (w *wrapErr) Error() string { return "gemini: " + w.inner.Error() }
func (w *wrapErr) Unwrap() error { return w.inner }

func TestExtractFromURL_Success(t *testing.T) {
	r := newExtractTestRouter(t, &stubExtractor{res: &extract.Result{
		Title:    "カレー",
		SiteName: "example.com",
	}})
	w := doJSON(t, r, http.MethodPost, "/api/recipes/extract", `{"url": "https://example.com/r"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var res extract.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Title != "カレー" || res.SiteName != "example.com" {
		t.Errorf("result = %+v", res)
	}
}
