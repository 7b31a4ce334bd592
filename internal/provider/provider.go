// Package provider abstracts the hosted model endpoints the pipeline depends
// on: text embedding and chat completion. Implementations are swappable
// without changing callers; the reference deployment talks to an
// OpenAI-compatible hosted API, with Gemini and a local Ollama instance as
// alternatives.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Embedder maps text to fixed-length vectors. The batch form is used at index
// build time for throughput. Oversized inputs are an error, never silently
// truncated.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a chat completion for an assembled prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Error wraps a failed call to a remote model endpoint. Timeout is set when
// the call exceeded its deadline rather than failing outright, so callers can
// tell a hung provider from an upstream fault.
type Error struct {
	Op      string // "embed", "rerank" or "generate"
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	if e.Timeout {
		return fmt.Sprintf("provider %s call timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("provider %s call failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WrapError classifies err as a provider Error for op, marking deadline
// exhaustion as a timeout.
func WrapError(op string, err error) *Error {
	return &Error{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
