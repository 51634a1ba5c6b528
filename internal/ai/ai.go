// Package ai defines the provider-neutral completion interface consumed by
// the generation layer, plus the error taxonomy the retry logic branches on.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Completer is the minimal surface the pipeline needs from a model provider:
// plain prompt text in, plain response text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrorKind classifies a failed completion so callers can pick a retry
// policy without inspecting provider-specific error types.
type ErrorKind string

const (
	// KindRateLimited marks quota and throttling failures; retried with
	// escalating delay.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient marks server-side or network failures worth a plain retry.
	KindTransient ErrorKind = "transient"
	// KindMalformed marks responses that came back but could not be parsed
	// into the expected shape.
	KindMalformed ErrorKind = "malformed"
	// KindFatal marks failures that retrying cannot fix (bad request,
	// missing credentials).
	KindFatal ErrorKind = "fatal"
)

// Error carries the classification alongside the provider error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify returns the kind of err, defaulting to transient for anything
// unclassified so an unknown provider hiccup still gets its retries.
func Classify(err error) ErrorKind {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	return KindTransient
}
