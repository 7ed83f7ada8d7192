package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-nakagawa/cookmark/internal/ai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: ts.URL,
		Model:   "gpt-test",
	}, slog.New(slog.DiscardHandler))
}

func TestGenerate_ChatCompletion(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  {\"title\": \"x\"}  "}},
			},
		})
	})

	text, err := c.Generate(context.Background(), "prompt text", ai.Options{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if text != `{"title": "x"}` {
		t.Errorf("text = %q, want trimmed content", text)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-test" {
		t.Errorf("model = %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %#v", gotBody["messages"])
	}
	msg, _ := msgs[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "prompt text" {
		t.Errorf("message = %#v", msg)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := c.Generate(context.Background(), "p", ai.Options{})
	if !errors.Is(err, ai.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestGenerate_ErrorStatusIncludesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	})

	_, err := c.Generate(context.Background(), "p", ai.Options{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !ai.IsRateLimited(err) {
		t.Errorf("IsRateLimited() = false: %v", err)
	}
}
