package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrClassifier   = errors.New("classification failed")
)

// ProviderError reports a transport or malformed-response failure from the
// place-data provider, keeping its status/message for diagnostics.
type ProviderError struct {
	Status  int // HTTP status, 0 when the request never completed
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider: %s (status %d)", e.Message, e.Status)
	}
	return "provider: " + e.Message
}

// PipelineError wraps a fatal failure during resolution or fetch. Per-review
// classification failures never take this form; they stay in their slot.
type PipelineError struct {
	Stage string // "resolve" or "fetch"
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
