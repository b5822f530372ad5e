package session

import (
	"testing"
	"time"

	"github.com/voicehive/voicehive/internal/flow"
	"github.com/voicehive/voicehive/internal/slots"
)

func TestSetLifecycle_MonotoneForward(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())

	steps := []Lifecycle{LifecycleConnecting, LifecycleActive, LifecycleTransferring, LifecycleEnding, LifecycleEnded}
	for _, next := range steps {
		if err := s.SetLifecycle(next); err != nil {
			t.Fatalf("SetLifecycle(%s): %v", next, err)
		}
	}
	if s.Lifecycle != LifecycleEnded {
		t.Errorf("lifecycle = %s", s.Lifecycle)
	}
}

func TestSetLifecycle_NoBackwardMoves(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())
	if err := s.SetLifecycle(LifecycleActive); err != nil {
		t.Fatalf("SetLifecycle(active): %v", err)
	}
	if err := s.SetLifecycle(LifecycleConnecting); err == nil {
		t.Error("active -> connecting must be rejected")
	}
}

func TestSetLifecycle_HoldOscillation(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())
	if err := s.SetLifecycle(LifecycleActive); err != nil {
		t.Fatalf("SetLifecycle(active): %v", err)
	}
	if err := s.SetLifecycle(LifecycleOnHold); err != nil {
		t.Errorf("active -> on_hold: %v", err)
	}
	if err := s.SetLifecycle(LifecycleActive); err != nil {
		t.Errorf("on_hold -> active: %v", err)
	}
}

func TestSetLifecycle_FinalIsImmutable(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())
	s.Lifecycle = LifecycleEnded
	if err := s.SetLifecycle(LifecycleActive); err == nil {
		t.Error("ended session must reject lifecycle changes")
	}

	s.Lifecycle = LifecycleFailed
	if err := s.SetLifecycle(LifecycleEnded); err == nil {
		t.Error("failed session must reject lifecycle changes")
	}
}

func TestAppendTurn_StableIndices(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())
	for i := 0; i < 3; i++ {
		s.appendTurn(Turn{Role: "user", Type: "text", Content: "x"})
	}
	for i, turn := range s.Turns {
		if turn.Index != i {
			t.Errorf("turn %d has index %d", i, turn.Index)
		}
	}
}

func TestSlotSets_StayDisjoint(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())
	s.mergeSlots(map[string]slots.Slot{
		"check_in_date": {Name: "check_in_date", Value: "10/12"},
		"guest_count":   {Name: "guest_count", Value: "2"},
	})
	s.completeActiveSlots()

	if len(s.ActiveSlots) != 0 {
		t.Errorf("active slots = %v after completion", s.ActiveSlots)
	}
	if !s.CompletedSlots["guest_count"].Confirmed {
		t.Error("completed slots must be marked confirmed")
	}

	// A completed slot name must not re-enter the active set.
	s.mergeSlots(map[string]slots.Slot{
		"guest_count": {Name: "guest_count", Value: "4"},
		"room_type":   {Name: "room_type", Value: "double"},
	})
	if _, ok := s.ActiveSlots["guest_count"]; ok {
		t.Error("completed slot leaked back into the active set")
	}
	if _, ok := s.ActiveSlots["room_type"]; !ok {
		t.Error("fresh slot missing from the active set")
	}

	if got := s.filledSlots(); got["guest_count"].Value != "2" || got["room_type"].Value != "double" {
		t.Errorf("filledSlots = %v", got)
	}
}

func TestNewSession_Defaults(t *testing.T) {
	t.Parallel()

	s := newSession("c1", "r1", "h1", time.Now())
	if s.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d", s.SchemaVersion)
	}
	if s.Lifecycle != LifecycleInitializing {
		t.Errorf("lifecycle = %s", s.Lifecycle)
	}
	if s.State != flow.Initial {
		t.Errorf("state = %s", s.State)
	}
	if s.Language != "en" {
		t.Errorf("language = %s", s.Language)
	}
}

func TestParseEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"agent_ready", map[string]any{"hotel_id": "h1"}, "agent_ready"},
		{"call_started", map[string]any{"participant_identity": "p1", "detected_language": "de"}, "call_started"},
		{"transcription", map[string]any{"text": "hi", "is_final": true, "confidence": 0.9}, "transcription"},
		{"dtmf", map[string]any{"digit": "1"}, "dtmf"},
		{"call_ended", map[string]any{"reason": "hangup"}, "call_ended"},
	}
	for _, tt := range tests {
		ev, err := ParseEvent(tt.name, "r1", tt.data)
		if err != nil {
			t.Errorf("ParseEvent(%s): %v", tt.name, err)
			continue
		}
		if ev.Name() != tt.want || ev.Room() != "r1" {
			t.Errorf("ParseEvent(%s) = %s/%s", tt.name, ev.Name(), ev.Room())
		}
	}

	if _, err := ParseEvent("participant_joined", "r1", nil); err == nil {
		t.Error("unknown event name must error")
	}
	if _, err := ParseEvent("dtmf", "", nil); err == nil {
		t.Error("missing room_name must error")
	}

	ev, err := ParseEvent("transcription", "r1", map[string]any{"text": "hallo", "language": "de", "is_final": true})
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	tr := ev.(Transcription)
	if tr.Text != "hallo" || tr.Language != "de" || !tr.IsFinal {
		t.Errorf("transcription = %+v", tr)
	}
}

func TestGreeting_Localized(t *testing.T) {
	t.Parallel()

	if got := Greeting("de", "Hotel Adler"); got != "Herzlich willkommen im Hotel Adler! Ich bin Ihr virtueller Assistent. Wie kann ich Ihnen helfen?" {
		t.Errorf("german greeting = %q", got)
	}
	if got := Greeting("xx", ""); got == "" || got[:10] != "Welcome to" {
		t.Errorf("fallback greeting = %q", got)
	}
}
