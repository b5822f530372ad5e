// Package speech coordinates text-to-speech for call responses.
//
// The Coordinator wraps a tts.Provider with the voice pipeline's retry
// policy and language normalisation. Synthesis failure is never fatal to a
// call: after exhausting retries the coordinator returns ErrNotSynthesized
// and the session proceeds with a text-only response.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voicehive/voicehive/internal/resilience"
	"github.com/voicehive/voicehive/pkg/provider/tts"
)

// ErrNotSynthesized means all synthesis attempts failed. Callers emit a
// text-only response.
var ErrNotSynthesized = errors.New("speech: not synthesized")

// DefaultAttemptTimeout bounds one synthesis attempt.
const DefaultAttemptTimeout = 30 * time.Second

// regionalVariants maps short language codes to their default regional
// variant. Codes already carrying a region are passed through unchanged;
// unknown codes fall back to en-US.
var regionalVariants = map[string]string{
	"en": "en-US",
	"de": "de-DE",
	"es": "es-ES",
	"fr": "fr-FR",
	"it": "it-IT",
	"nl": "nl-NL",
	"pt": "pt-PT",
	"pl": "pl-PL",
	"ru": "ru-RU",
	"ja": "ja-JP",
	"zh": "zh-CN",
}

// MapLanguage normalises a language code for the TTS backend.
func MapLanguage(code string) string {
	if strings.Contains(code, "-") {
		return code
	}
	if v, ok := regionalVariants[strings.ToLower(code)]; ok {
		return v
	}
	return "en-US"
}

// Synthesis is the outcome of one successful synthesis.
type Synthesis struct {
	// Audio is the encoded audio artifact, base64-transportable.
	Audio []byte

	// Format is the audio container of Audio.
	Format string

	// Engine and Voice name what the backend used.
	Engine string
	Voice  string

	// Cached reports whether the backend served from cache.
	Cached bool

	// DurationMS is the audio duration.
	DurationMS int64

	// Latency is the wall-clock time spent, retries included.
	Latency time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithAttemptTimeout bounds each synthesis attempt. The default is 30 s.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.attemptTimeout = d
	}
}

// WithBackoff overrides the retry backoff timing. Intended for tests; the
// defaults are 1 s base and 5 s cap over three attempts.
func WithBackoff(base, cap time.Duration) Option {
	return func(c *Coordinator) {
		c.retry.BaseDelay = base
		c.retry.MaxDelay = cap
	}
}

// WithVoice pins synthesis to a specific voice id.
func WithVoice(voiceID string) Option {
	return func(c *Coordinator) {
		c.voiceID = voiceID
	}
}

// Coordinator synthesizes responses with retry. Safe for concurrent use.
type Coordinator struct {
	provider       tts.Provider
	logger         *slog.Logger
	attemptTimeout time.Duration
	retry          resilience.RetryConfig
	voiceID        string
	format         string
}

// NewCoordinator creates a TTS coordinator over the provider.
func NewCoordinator(provider tts.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		provider:       provider,
		logger:         slog.Default(),
		attemptTimeout: DefaultAttemptTimeout,
		format:         "mp3",
		retry: resilience.RetryConfig{
			Name:        "tts synthesis",
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    5 * time.Second,
			Retryable:   tts.Retryable,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Speak synthesizes text in the given language. On failure after retries it
// returns an error wrapping ErrNotSynthesized; the text response should
// still be emitted.
func (c *Coordinator) Speak(ctx context.Context, text, language string) (*Synthesis, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrNotSynthesized)
	}

	start := time.Now()
	mapped := MapLanguage(language)

	var res *tts.SynthesisResult
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()

		var err error
		res, err = c.provider.Synthesize(actx, tts.SynthesisRequest{
			Text:     text,
			Language: mapped,
			VoiceID:  c.voiceID,
			Format:   c.format,
		})
		return err
	})
	latency := time.Since(start)

	if err != nil {
		c.logger.Warn("synthesis failed, proceeding text-only",
			"language", mapped,
			"latency_ms", latency.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotSynthesized, err)
	}

	c.logger.Debug("synthesis complete",
		"language", mapped,
		"engine", res.EngineUsed,
		"cached", res.Cached,
		"latency_ms", latency.Milliseconds())

	return &Synthesis{
		Audio:      res.AudioData,
		Format:     c.format,
		Engine:     res.EngineUsed,
		Voice:      res.VoiceUsed,
		Cached:     res.Cached,
		DurationMS: res.DurationMS,
		Latency:    latency,
	}, nil
}
