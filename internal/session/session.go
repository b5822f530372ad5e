// Package session owns the authoritative per-call state.
//
// The Manager maps media-plane events to session mutations: it provisions
// sessions on agent_ready, runs the full user-turn pipeline (intent → slots →
// flow → LLM → TTS → persist) on final transcriptions, handles DTMF menu
// navigation, and tears sessions down on call_ended. Mutations for one
// session are serialized on a per-session lane; different sessions proceed in
// parallel.
package session

import (
	"fmt"
	"time"

	"github.com/voicehive/voicehive/internal/flow"
	"github.com/voicehive/voicehive/internal/intent"
	"github.com/voicehive/voicehive/internal/slots"
)

// SchemaVersion tags persisted session snapshots. Bump on any incompatible
// change to the Session JSON shape.
const SchemaVersion = 1

// Lifecycle is a call's coarse lifecycle state. Transitions are monotone
// forward except active ↔ on_hold; ended and failed are final.
type Lifecycle string

const (
	LifecycleInitializing Lifecycle = "initializing"
	LifecycleConnecting   Lifecycle = "connecting"
	LifecycleActive       Lifecycle = "active"
	LifecycleOnHold       Lifecycle = "on_hold"
	LifecycleTransferring Lifecycle = "transferring"
	LifecycleEnding       Lifecycle = "ending"
	LifecycleEnded        Lifecycle = "ended"
	LifecycleFailed       Lifecycle = "failed"
)

// lifecycleRank orders lifecycle states for the monotone-forward check.
// active and on_hold share a rank so the call can oscillate between them.
var lifecycleRank = map[Lifecycle]int{
	LifecycleInitializing: 0,
	LifecycleConnecting:   1,
	LifecycleActive:       2,
	LifecycleOnHold:       2,
	LifecycleTransferring: 3,
	LifecycleEnding:       4,
	LifecycleEnded:        5,
	LifecycleFailed:       5,
}

// Final reports whether l permits no further mutation.
func Final(l Lifecycle) bool {
	return l == LifecycleEnded || l == LifecycleFailed
}

// Turn is one append-only conversation record. Indices are stable and
// assigned in arrival order.
type Turn struct {
	Index    int    `json:"index"`
	Role     string `json:"role"` // user|assistant
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Type     string `json:"type"` // text|dtmf|dtmf_response

	// Detection is set on user turns that went through the intent detector.
	Detection *intent.Result `json:"detection,omitempty"`

	// Slots holds the slots newly extracted from this turn.
	Slots map[string]slots.Slot `json:"slots,omitempty"`

	// ToolCalls lists the PMS functions invoked while producing this turn.
	ToolCalls []string `json:"tool_calls,omitempty"`

	// Metadata carries response details (tts engine, fallback flags).
	Metadata map[string]any `json:"metadata,omitempty"`

	At time.Time `json:"at"`
}

// Latency accumulates per-phase wall-clock milliseconds over the call.
type Latency struct {
	ASRMS    int64 `json:"asr_ms"`
	IntentMS int64 `json:"intent_ms"`
	LLMMS    int64 `json:"llm_ms"`
	TTSMS    int64 `json:"tts_ms"`
}

// Session is the authoritative state of one call. All fields are mutated only
// under the owning lane; the JSON shape is the persisted snapshot format.
type Session struct {
	SchemaVersion int    `json:"schema_version"`
	CallID        string `json:"call_id"`
	RoomName      string `json:"room_name"`
	HotelID       string `json:"hotel_id"`
	Participant   string `json:"participant,omitempty"`

	// Language is the detected caller language (short code).
	Language string `json:"language"`

	Lifecycle Lifecycle  `json:"lifecycle"`
	State     flow.State `json:"conversation_state"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Turns []Turn `json:"turns"`

	// ActiveSlots holds slots for the in-progress task; CompletedSlots holds
	// slots of executed tasks. The two sets are disjoint.
	ActiveSlots    map[string]slots.Slot `json:"active_slots"`
	CompletedSlots map[string]slots.Slot `json:"completed_slots"`

	// PendingIntent is the task currently being slot-filled.
	PendingIntent intent.Intent `json:"pending_intent,omitempty"`

	// IntentHistory records every primary intent in arrival order.
	IntentHistory []string `json:"intent_history,omitempty"`

	// ClarificationAttempts counts consecutive clarification turns.
	ClarificationAttempts int `json:"clarification_attempts"`

	EscalationReasons []string `json:"escalation_reasons,omitempty"`

	// Upsells records upsell activity ("offered:single->double",
	// "accepted:room_upgrade"). UpsellCandidate marks an opportunity that has
	// not been offered yet.
	Upsells         []string `json:"upsells,omitempty"`
	UpsellCandidate bool     `json:"upsell_candidate"`

	Latency Latency `json:"latency"`

	// PMSData caches hotel data fetched during the call.
	PMSData map[string]any `json:"pms_data,omitempty"`
}

// newSession provisions a fresh session in the initial states.
func newSession(callID, roomName, hotelID string, now time.Time) *Session {
	return &Session{
		SchemaVersion:  SchemaVersion,
		CallID:         callID,
		RoomName:       roomName,
		HotelID:        hotelID,
		Language:       "en",
		Lifecycle:      LifecycleInitializing,
		State:          flow.Initial,
		StartedAt:      now,
		Turns:          []Turn{},
		ActiveSlots:    map[string]slots.Slot{},
		CompletedSlots: map[string]slots.Slot{},
	}
}

// SetLifecycle moves the session's lifecycle state, enforcing the
// monotone-forward invariant.
func (s *Session) SetLifecycle(next Lifecycle) error {
	if Final(s.Lifecycle) {
		return fmt.Errorf("session %s: lifecycle %s is final", s.CallID, s.Lifecycle)
	}
	from, ok := lifecycleRank[s.Lifecycle]
	to, okNext := lifecycleRank[next]
	if !ok || !okNext {
		return fmt.Errorf("session %s: unknown lifecycle %q -> %q", s.CallID, s.Lifecycle, next)
	}
	if to < from {
		return fmt.Errorf("session %s: lifecycle cannot move back from %s to %s", s.CallID, s.Lifecycle, next)
	}
	s.Lifecycle = next
	return nil
}

// appendTurn appends a turn with the next stable index and returns it.
func (s *Session) appendTurn(t Turn) Turn {
	t.Index = len(s.Turns)
	if t.At.IsZero() {
		t.At = time.Now()
	}
	s.Turns = append(s.Turns, t)
	return t
}

// mergeSlots folds newly extracted slots into the active set. Names already
// completed are skipped to keep the active and completed sets disjoint.
func (s *Session) mergeSlots(extracted map[string]slots.Slot) {
	for name, slot := range extracted {
		if _, done := s.CompletedSlots[name]; done {
			continue
		}
		s.ActiveSlots[name] = slot
	}
}

// completeActiveSlots moves every active slot to the completed set, marking
// them confirmed. Called when a task reaches execution.
func (s *Session) completeActiveSlots() {
	for name, slot := range s.ActiveSlots {
		slot.Confirmed = true
		s.CompletedSlots[name] = slot
	}
	s.ActiveSlots = map[string]slots.Slot{}
}

// filledSlots returns the union of active and completed slots for flow input.
func (s *Session) filledSlots() map[string]slots.Slot {
	out := make(map[string]slots.Slot, len(s.ActiveSlots)+len(s.CompletedSlots))
	for name, slot := range s.CompletedSlots {
		out[name] = slot
	}
	for name, slot := range s.ActiveSlots {
		out[name] = slot
	}
	return out
}

// history returns the last user/assistant text turns as LLM replay input.
func (s *Session) history() []Turn {
	out := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Type == "text" || t.Type == "dtmf_response" {
			out = append(out, t)
		}
	}
	return out
}

// Duration reports the call duration, up to now for live calls.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}
