package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gateway sends a prompt to an ordered chain of providers and parses the
// first usable answer as a JSON object. The first provider is primary; each
// later one is tried only when the previous attempt failed for a reason other
// than rate limiting.
type Gateway struct {
	providers []Generator
	logger    *slog.Logger
}

func NewGateway(providers []Generator, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{providers: providers, logger: logger}
}

// CallForJSON runs the prompt through the provider chain and returns the
// decoded JSON object. A rate-limited primary short-circuits the chain so the
// caller can surface a distinct status instead of burning the fallback quota.
func (g *Gateway) CallForJSON(ctx context.Context, prompt string, opts Options) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()

	g.logger.Info("ai.gateway.start",
		"req_id", rid,
		"providers", len(g.providers),
		"prompt_len", len(prompt),
		"search_grounding", opts.SearchGrounding,
	)

	var lastErr error
	for i, p := range g.providers {
		text, err := p.Generate(ctx, prompt, opts)
		if err == nil {
			payload, perr := decodeJSONObject(text)
			if perr == nil {
				g.logger.Info("ai.gateway.ok",
					"req_id", rid,
					"provider", p.Name(),
					"response_len", len(text),
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
				return payload, nil
			}
			err = perr
		}

		if i == 0 && IsRateLimited(err) {
			g.logger.Warn("ai.gateway.rate_limited",
				"req_id", rid,
				"provider", p.Name(),
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, fmt.Errorf("%s: %w", p.Name(), ErrRateLimited)
		}

		g.logger.Warn("ai.gateway.provider_failed",
			"req_id", rid,
			"provider", p.Name(),
			"error", err,
		)
		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
	}

	g.logger.Error("ai.gateway.exhausted",
		"req_id", rid,
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}

// decodeJSONObject strips an optional markdown code fence and parses the text
// as a JSON object.
func decodeJSONObject(text string) (map[string]any, error) {
	jsonText := StripCodeFence(strings.TrimSpace(text))
	var payload map[string]any
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	return payload, nil
}

// StripCodeFence removes a leading ``` or ```json fence and the matching
// trailing fence. Text without a fence passes through unchanged.
func StripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	s := strings.TrimPrefix(text, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSuffix(s, "\n")
	return s
}
