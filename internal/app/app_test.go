package app_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/voicehive/voicehive/internal/app"
	"github.com/voicehive/voicehive/internal/config"
	"github.com/voicehive/voicehive/internal/session"
	"github.com/voicehive/voicehive/internal/store"
	"github.com/voicehive/voicehive/pkg/provider/llm"
	llmmock "github.com/voicehive/voicehive/pkg/provider/llm/mock"
	ttsmock "github.com/voicehive/voicehive/pkg/provider/tts/mock"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(`
server:
  listen_addr: "127.0.0.1:0"
media:
  token: "secret"
hotels:
  - id: h1
    name: Hotel Alpha
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	providers := app.Providers{
		LLM: &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "Certainly."}}},
		TTS: &ttsmock.Provider{},
	}
	a, err := app.New(context.Background(), testConfig(t), providers, app.WithStore(store.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew_WiresTheFullPipeline(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	m := a.Manager()
	if m == nil {
		t.Fatal("no session manager")
	}

	ctx := context.Background()
	ready := m.Handle(ctx, session.AgentReady{RoomName: "r1", HotelID: "h1"})
	if ready.Status != "ready" {
		t.Fatalf("agent_ready reply = %+v", ready)
	}
	started := m.Handle(ctx, session.CallStarted{RoomName: "r1", Participant: "p1"})
	if started.Status != "started" {
		t.Fatalf("call_started reply = %+v", started)
	}
	if !strings.Contains(started.Text, "Hotel Alpha") {
		t.Errorf("greeting %q does not use the configured hotel name", started.Text)
	}
}

func TestNew_WithoutProvidersDegrades(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(t), app.Providers{}, app.WithStore(store.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	m := a.Manager()
	m.Handle(ctx, session.AgentReady{RoomName: "r1", HotelID: "h1"})
	m.Handle(ctx, session.CallStarted{RoomName: "r1", Participant: "p1"})

	reply := m.Handle(ctx, session.Transcription{
		RoomName: "r1", Text: "I need a room for two guests", IsFinal: true,
	})
	if reply.Status != "processed" {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.Text == "" {
		t.Error("no template fallback text")
	}
	if reply.AudioData != nil {
		t.Error("audio produced without a TTS provider")
	}
	if used, _ := reply.Metadata["fallback_used"].(bool); !used {
		t.Error("fallback_used not flagged")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	// Second shutdown is a no-op.
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown again: %v", err)
	}
}

func TestNewOutboundClient_PoolSizing(t *testing.T) {
	t.Parallel()

	c := app.NewOutboundClient(config.HTTPPoolConfig{
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
	})

	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport is %T, want *http.Transport", c.Transport)
	}
	if tr.MaxIdleConnsPerHost != 20 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 20", tr.MaxIdleConnsPerHost)
	}
	if tr.MaxConnsPerHost != 100 {
		t.Errorf("MaxConnsPerHost = %d, want 100", tr.MaxConnsPerHost)
	}
	if c.Timeout != 0 {
		t.Errorf("client timeout = %v, want none (deadlines come from contexts)", c.Timeout)
	}
}
