package session

import (
	"fmt"
)

// Event is one inbound media-plane event. The concrete type selects the
// handler.
type Event interface {
	// Name is the wire-level event name.
	Name() string

	// Room is the media room the event belongs to.
	Room() string
}

// AgentReady announces that the voice agent joined a room and a session
// should be provisioned.
type AgentReady struct {
	RoomName string
	HotelID  string
}

func (e AgentReady) Name() string { return "agent_ready" }
func (e AgentReady) Room() string { return e.RoomName }

// CallStarted announces that the caller connected and the greeting should be
// spoken.
type CallStarted struct {
	RoomName    string
	Participant string

	// Language is the detected caller language, when the media plane knows
	// it. Empty keeps the session default.
	Language string
}

func (e CallStarted) Name() string { return "call_started" }
func (e CallStarted) Room() string { return e.RoomName }

// Transcription carries one ASR result. Only final results trigger a turn.
type Transcription struct {
	RoomName   string
	Text       string
	Language   string
	Confidence float64
	IsFinal    bool

	// DurationMS is the ASR processing time reported by the service.
	DurationMS int64
}

func (e Transcription) Name() string { return "transcription" }
func (e Transcription) Room() string { return e.RoomName }

// DTMF carries one keypad digit.
type DTMF struct {
	RoomName string
	Digit    string
}

func (e DTMF) Name() string { return "dtmf" }
func (e DTMF) Room() string { return e.RoomName }

// CallEnded announces call teardown.
type CallEnded struct {
	RoomName string
	Reason   string
}

func (e CallEnded) Name() string { return "call_ended" }
func (e CallEnded) Room() string { return e.RoomName }

// ParseEvent builds a typed event from a wire-level name, room, and data bag.
// Unknown names return an error; the caller logs and ignores them.
func ParseEvent(name, room string, data map[string]any) (Event, error) {
	if room == "" {
		return nil, fmt.Errorf("session: event %q without room_name", name)
	}

	switch name {
	case "agent_ready":
		return AgentReady{
			RoomName: room,
			HotelID:  str(data, "hotel_id"),
		}, nil
	case "call_started":
		return CallStarted{
			RoomName:    room,
			Participant: str(data, "participant_identity"),
			Language:    str(data, "detected_language"),
		}, nil
	case "transcription":
		return Transcription{
			RoomName:   room,
			Text:       str(data, "text"),
			Language:   str(data, "language"),
			Confidence: num(data, "confidence"),
			IsFinal:    boolean(data, "is_final"),
			DurationMS: int64(num(data, "duration_ms")),
		}, nil
	case "dtmf":
		return DTMF{
			RoomName: room,
			Digit:    str(data, "digit"),
		}, nil
	case "call_ended":
		return CallEnded{
			RoomName: room,
			Reason:   str(data, "reason"),
		}, nil
	default:
		return nil, fmt.Errorf("session: unknown event %q", name)
	}
}

func str(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func num(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func boolean(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

// Reply is the structured outbound response for one handled event.
type Reply struct {
	// Status is "ready", "started", "processed", "ended", "ignored" or
	// "error".
	Status string `json:"status"`

	// Action tells the media plane what to do: speak, ended, ready, partial
	// or dtmf_processed.
	Action string `json:"action"`

	// Text and Language carry the assistant's reply when Action is speak.
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`

	// AudioData is the synthesized reply audio; nil when synthesis failed or
	// was not attempted. Base64 in JSON.
	AudioData   []byte `json:"audio_data"`
	AudioFormat string `json:"audio_format,omitempty"`

	// Message explains error and ignored statuses.
	Message string `json:"message,omitempty"`

	// Metadata is the response detail bag: tts_engine, tts_cached,
	// detected_intents, primary_intent, conversation_state, flow_confidence,
	// duration_ms.
	Metadata map[string]any `json:"metadata,omitempty"`
}
