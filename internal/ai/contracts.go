package ai

import (
	"context"
	"errors"
	"strings"
)

// Generator is a single text-generation provider. Implementations send one
// prompt and return the model's raw text output.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options carries per-call provider hints. Providers ignore what they do not
// support.
type Options struct {
	// SearchGrounding asks the provider to ground the generation with live
	// web search results. Only the Gemini client honors it.
	SearchGrounding bool
}

var (
	// ErrEmptyResponse means the provider answered but carried no text. This
	// is distinct from a transport or parse failure.
	ErrEmptyResponse = errors.New("model returned empty response")

	// ErrRateLimited means the primary provider reported a quota or
	// rate-limit condition. The gateway does not fall back in this case.
	ErrRateLimited = errors.New("model rate limited")

	// ErrAllProvidersFailed means every provider in the chain was tried and
	// none produced a usable answer.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// rate-limit signals observed in provider error text
var rateLimitMarkers = []string{"429", "RESOURCE_EXHAUSTED", "quota"}

// IsRateLimited reports whether the error text carries a known quota or
// rate-limit marker.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := err.Error()
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
