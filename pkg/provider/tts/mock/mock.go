// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to feed controlled synthesis results to consumers and to
// script failure sequences for retry tests.
//
// Example:
//
//	p := &mock.Provider{
//	    Errs:   []error{&tts.HTTPError{StatusCode: 500}, &tts.HTTPError{StatusCode: 500}},
//	    Result: &tts.SynthesisResult{AudioData: []byte("audio"), EngineUsed: "mock"},
//	}
//	// First two Synthesize calls fail with 500, the third succeeds.
package mock

import (
	"context"
	"sync"

	"github.com/voicehive/voicehive/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Errs is a queue of errors; each Synthesize call consumes one until the
	// queue is empty, after which Result is returned.
	Errs []error

	// Result is returned by Synthesize once Errs is drained. Nil yields a
	// minimal canned result.
	Result *tts.SynthesisResult

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// HealthErr is returned by Health.
	HealthErr error

	// Requests records every SynthesisRequest passed to Synthesize.
	Requests []tts.SynthesisRequest
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(_ context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)

	if len(p.Errs) > 0 {
		err := p.Errs[0]
		p.Errs = p.Errs[1:]
		return nil, err
	}
	if p.Result != nil {
		return p.Result, nil
	}
	return &tts.SynthesisResult{
		AudioData:  []byte("mock-audio"),
		DurationMS: 1200,
		EngineUsed: "mock",
		VoiceUsed:  "mock-voice",
	}, nil
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Voices, nil
}

// Health implements tts.Provider.
func (p *Provider) Health(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthErr
}

// RequestCount returns how many times Synthesize was invoked.
func (p *Provider) RequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}
