// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service and presents a uniform
// batch interface: one utterance in, one encoded audio artifact out. The
// voice pipeline synthesizes a single response per conversation turn, so
// unlike a streaming media stack there is no fragment pipelining here.
//
// Implementations must be safe for concurrent use; many calls synthesize in
// parallel.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text to audio. Returns an error when the backend
	// fails or ctx expires; callers decide whether to retry via Retryable.
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)

	// ListVoices returns the backend's current voice catalogue.
	ListVoices(ctx context.Context) ([]Voice, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error
}

// HTTPError is a non-2xx response from a TTS backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tts: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether err is worth retrying: transport failures, 5xx
// responses, 408 and 429. Other 4xx responses are permanent.
func Retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout,
			httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		}
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
