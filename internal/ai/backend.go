// Package ai defines the backend contract for AI completions and the
// Gemini implementation used in production.
package ai

import (
	"context"
	"errors"
)

// ErrBackendUnavailable wraps transport-level failures so callers can
// distinguish them from malformed-request errors.
var ErrBackendUnavailable = errors.New("ai backend unavailable")

// Message is one prior conversation turn supplied as context.
type Message struct {
	// Role is "user" or "ai".
	Role string
	Text string
}

// Image is a decoded inline image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request carries the full context for one completion. Each call is
// self-contained; no client state persists across turns.
type Request struct {
	SystemPrompt string
	Model        string
	History      []Message
	Text         string
	Images       []Image
}

// Backend produces one completion per request. Implementations do not
// retry; the caller owns failure handling.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}
