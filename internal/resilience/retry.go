package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig holds tuning knobs for [Do]. Zero-value fields are replaced
// with defaults matching the TTS retry policy: three attempts, 1 s base,
// 5 s cap.
type RetryConfig struct {
	// Name labels the operation in error messages.
	Name string

	// MaxAttempts is the total number of tries, including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff and bounds the jitter.
	// Default: 1 s.
	BaseDelay time.Duration

	// MaxDelay caps the exponential component. Default: 5 s.
	MaxDelay time.Duration

	// Retryable classifies errors; nil means every error is retryable.
	// A non-retryable error aborts immediately and is returned as-is.
	Retryable func(error) bool
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
}

// Do runs fn up to cfg.MaxAttempts times. Between attempt n and n+1 it sleeps
// min(MaxDelay, BaseDelay × 2^(n-1)) plus uniform jitter in [0, BaseDelay).
// Context cancellation aborts the wait and returns ctx.Err() joined with the
// last attempt's error.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg.applyDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.BaseDelay << (attempt - 1)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		delay += time.Duration(rand.Int63n(int64(cfg.BaseDelay)))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		}
	}
	return fmt.Errorf("resilience: %s failed after %d attempts: %w", cfg.Name, cfg.MaxAttempts, lastErr)
}
