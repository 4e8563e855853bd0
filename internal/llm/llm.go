// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps Generative AI APIs behind a single completion
// interface with a transient/fatal failure taxonomy. Retry and backoff
// for network-level noise live inside the clients; callers see one
// success or one classified failure per call.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Options carries per-call sampling parameters.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Client is the completion contract the orchestration layer depends on.
// Implementations must be safe for concurrent use: the validator issues
// several Complete calls in parallel.
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// TransientError marks a failure the caller may retry: rate limiting,
// server errors, network interruptions. Clients retry these internally
// before surfacing one.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure the caller must not retry: authentication,
// malformed requests, content rejections.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
