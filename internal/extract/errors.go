package extract

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks user-correctable problems: a malformed URL or empty
// pasted text.
var ErrInvalidInput = errors.New("invalid input")

// FetchError means the source page could not be downloaded. StatusCode is the
// upstream HTTP status, or 0 for a network-level failure.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch page: upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("fetch page: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NoRecipeError means the model explicitly reported that the source contains
// no recipe. Message is the model's own (localized) explanation and is passed
// through to the client.
type NoRecipeError struct {
	Message string
}

func (e *NoRecipeError) Error() string { return "no recipe found: " + e.Message }
