package resilience

import (
	"context"

	"github.com/voicehive/voicehive/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across multiple
// TTS backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize converts text to audio using the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (*tts.SynthesisResult, error) {
		return p.Synthesize(ctx, req)
	})
}

// ListVoices returns the voice catalogue of the first healthy backend.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]tts.Voice, error) {
		return p.ListVoices(ctx)
	})
}

// Health reports healthy when any backend does.
func (f *TTSFallback) Health(ctx context.Context) error {
	return f.group.Execute(func(p tts.Provider) error {
		return p.Health(ctx)
	})
}
