package resilience

import (
	"errors"
	"testing"
	"time"
)

// errBackendDown stands in for a failing PMS or TTS backend.
var errBackendDown = errors.New("backend unavailable")

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "pms"})
	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 3 {
		t.Errorf("halfOpenMax = %d, want 3", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HealthyBackendPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "pms", MaxFailures: 3})

	calls := 0
	for i := 0; i < 5; i++ {
		if err := cb.Execute(func() error { calls++; return nil }); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if calls != 5 {
		t.Fatalf("backend invoked %d times, want 5", calls)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "tts-router",
		MaxFailures:  3,
		ResetTimeout: time.Hour, // stays open for the whole test
	})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBackendDown })
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open after 3 failures", cb.State())
	}

	// Open breaker rejects without touching the backend.
	touched := false
	err := cb.Execute(func() error { touched = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if touched {
		t.Error("open breaker still invoked the backend")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "pms", MaxFailures: 3})

	// Two timeouts, then a clean availability lookup.
	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return nil })

	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after recovery", cb.State())
	}

	// The counter restarted: two more failures must not open it.
	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return errBackendDown })
	if cb.State() != StateClosed {
		t.Fatal("breaker opened although the failure streak was broken")
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "tts-router",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return errBackendDown })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(15 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after reset timeout", cb.State())
	}
}

func TestCircuitBreaker_ProbesCloseTheBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "pms",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return errBackendDown })
	time.Sleep(15 * time.Millisecond)

	// Backend recovered: the allowed probes succeed and close the breaker.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probes", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "pms",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  3,
	})

	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return errBackendDown })
	time.Sleep(15 * time.Millisecond)

	// Backend is still down: the probe fails and the breaker re-opens.
	if err := cb.Execute(func() error { return errBackendDown }); err == nil {
		t.Fatal("expected error from failing probe")
	}

	// Inspect the raw state; State() would report half-open again once the
	// fresh lastFailure timestamp ages past the reset timeout.
	cb.mu.Lock()
	s := cb.state
	cb.mu.Unlock()
	if s != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", s)
	}
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "pms",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	_ = cb.Execute(func() error { return errBackendDown })
	_ = cb.Execute(func() error { return errBackendDown })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after reset", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("call after reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
