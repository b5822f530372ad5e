package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] either
// failed or was skipped because its circuit breaker is open. A caller seeing
// this error has no synthesis or completion to work with and must degrade
// (template reply, text-only turn).
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures the circuit breaker stamped onto each backend in
// a [FallbackGroup]. The zero value uses the breaker defaults.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// fallbackEntry is one backend with its dedicated breaker. Breakers are
// per-backend so a flapping primary cannot poison the standby's state.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary backend with standbys of the same type.
// A turn is served by the first entry whose breaker admits the call and whose
// invocation succeeds; later entries only see traffic the earlier ones could
// not handle. Used for the LLM and TTS provider chains, where a configured
// secondary (e.g. a second OpenAI deployment, or ElevenLabs behind the TTS
// router) keeps calls answerable through a primary outage.
//
// FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first entry. Standbys
// are appended with [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	cbCfg := cfg.CircuitBreaker
	cbCfg.Name = primaryName
	return &FallbackGroup[T]{
		entries: []fallbackEntry[T]{
			{
				name:    primaryName,
				value:   primary,
				breaker: NewCircuitBreaker(cbCfg),
			},
		},
		cfg: cfg,
	}
}

// AddFallback appends a standby backend. Standbys are tried in registration
// order, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each backend in order until one succeeds. Entries
// with an open breaker are skipped without invoking fn. When every entry
// fails the last error is wrapped in [ErrAllFailed].
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("backend circuit open, skipping", "backend", entry.name)
		} else {
			slog.Warn("backend failed, falling back", "backend", entry.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a value
// (a synthesis result, a completion). Package-level because Go methods cannot
// carry their own type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("backend circuit open, skipping", "backend", entry.name)
		} else {
			slog.Warn("backend failed, falling back", "backend", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
