package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/voicehive/voicehive/pkg/provider/tts"
	ttsmock "github.com/voicehive/voicehive/pkg/provider/tts/mock"
)

func TestTTSFallback_Synthesize_PrimarySuccess(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{
		Result: &tts.SynthesisResult{AudioData: []byte("audio"), EngineUsed: "primary"},
	}
	secondary := &ttsmock.Provider{
		Result: &tts.SynthesisResult{AudioData: []byte("audio"), EngineUsed: "secondary"},
	}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	res, err := fb.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineUsed != "primary" {
		t.Fatalf("engine = %q, want primary", res.EngineUsed)
	}
	if secondary.RequestCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.RequestCount())
	}
}

func TestTTSFallback_Synthesize_Failover(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{
		Errs: []error{&tts.HTTPError{StatusCode: 503, Body: "overloaded"}},
	}
	secondary := &ttsmock.Provider{
		Result: &tts.SynthesisResult{AudioData: []byte("audio"), EngineUsed: "secondary"},
	}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	res, err := fb.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineUsed != "secondary" {
		t.Fatalf("engine = %q, want secondary", res.EngineUsed)
	}
}

func TestTTSFallback_Synthesize_AllFail(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{Errs: []error{errors.New("primary down")}}
	secondary := &ttsmock.Provider{Errs: []error{errors.New("secondary down")}}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hello"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTTSFallback_Health(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{HealthErr: errors.New("unreachable")}
	secondary := &ttsmock.Provider{}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if err := fb.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestTTSFallback_ListVoices(t *testing.T) {
	t.Parallel()

	primary := &ttsmock.Provider{Voices: []tts.Voice{{ID: "v1", Name: "Anna"}}}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	voices, err := fb.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "v1" {
		t.Fatalf("voices = %+v", voices)
	}
}
