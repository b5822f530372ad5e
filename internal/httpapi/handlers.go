package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/voicehive/voicehive/internal/session"
	"github.com/voicehive/voicehive/internal/store"
)

// eventRequest is the media-plane event envelope on /call/event.
type eventRequest struct {
	Event               string         `json:"event"`
	RoomName            string         `json:"room_name"`
	CallSID             string         `json:"call_sid,omitempty"`
	ParticipantSID      string         `json:"participant_sid,omitempty"`
	ParticipantIdentity string         `json:"participant_identity,omitempty"`
	Data                map[string]any `json:"data"`
}

// eventResponse wraps the session manager's reply for the media plane.
type eventResponse struct {
	Status   string        `json:"status"`
	Event    string        `json:"event"`
	Response session.Reply `json:"response"`
}

func (s *Server) handleCallEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed body"})
	}

	if req.Data == nil {
		req.Data = map[string]any{}
	}
	if req.ParticipantIdentity != "" {
		req.Data["participant_identity"] = req.ParticipantIdentity
	}

	ev, err := session.ParseEvent(req.Event, req.RoomName, req.Data)
	if err != nil {
		s.logger.Warn("unroutable call event", "event", req.Event, "error", err)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "event": req.Event})
	}

	reply := s.manager.Handle(c.Request().Context(), ev)
	if reply.Status == "error" {
		return c.JSON(http.StatusInternalServerError, eventResponse{Status: reply.Status, Event: req.Event, Response: reply})
	}
	return c.JSON(http.StatusOK, eventResponse{Status: "processed", Event: req.Event, Response: reply})
}

// livekitEvents is the closed mapping from LiveKit webhook event names to
// internal event names.
var livekitEvents = map[string]string{
	"room_started":             "agent_ready",
	"agent_ready":              "agent_ready",
	"participant_joined":       "call_started",
	"participant_connected":    "call_started",
	"transcription_received":   "transcription",
	"dtmf_received":            "dtmf",
	"participant_left":         "call_ended",
	"participant_disconnected": "call_ended",
	"room_finished":            "call_ended",
}

// livekitRequest is the media-agent callback envelope.
type livekitRequest struct {
	Event    string         `json:"event"`
	RoomName string         `json:"room_name"`
	Room     struct {
		Name string `json:"name"`
	} `json:"room"`
	Data map[string]any `json:"data"`
}

func (s *Server) handleLiveKitWebhook(c echo.Context) error {
	var req livekitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed body"})
	}

	internal, ok := livekitEvents[req.Event]
	if !ok {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "event": req.Event})
	}

	room := req.RoomName
	if room == "" {
		room = req.Room.Name
	}
	ev, err := session.ParseEvent(internal, room, req.Data)
	if err != nil {
		s.logger.Warn("unroutable livekit event", "event", req.Event, "error", err)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "event": req.Event})
	}

	reply := s.manager.Handle(c.Request().Context(), ev)
	return c.JSON(http.StatusOK, eventResponse{Status: reply.Status, Event: internal, Response: reply})
}

// transcriptionRequest is the ASR callback body.
type transcriptionRequest struct {
	RoomName   string  `json:"room_name"`
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
	DurationMS int64   `json:"duration_ms"`
}

func (s *Server) handleTranscription(c echo.Context) error {
	var req transcriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed body"})
	}
	if req.RoomName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "room_name is required"})
	}

	reply := s.manager.Handle(c.Request().Context(), session.Transcription{
		RoomName:   req.RoomName,
		Text:       req.Text,
		Language:   req.Language,
		Confidence: req.Confidence,
		IsFinal:    req.IsFinal,
		DurationMS: req.DurationMS,
	})
	return c.JSON(http.StatusOK, eventResponse{Status: reply.Status, Event: "transcription", Response: reply})
}

// apaleoWebhook is the PMS webhook envelope.
type apaleoWebhook struct {
	Topic  string         `json:"topic"`
	Type   string         `json:"type,omitempty"`
	Entity map[string]any `json:"data,omitempty"`
}

func (s *Server) handleApaleoWebhook(c echo.Context) error {
	// Allowlist first, then signature, then parsing.
	if !ipAllowed(s.cfg.ApaleoAllowedIPs, c.RealIP()) {
		s.logger.Warn("pms webhook from disallowed address", "remote", c.RealIP())
		return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}
	if !verifySignature(s.cfg.ApaleoSecret, body, c.Request().Header.Get(signatureHeader)) {
		s.logger.Warn("pms webhook signature mismatch", "remote", c.RealIP())
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
	}

	var hook apaleoWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed body"})
	}

	switch hook.Topic {
	case "system/healthcheck":
		return c.JSON(http.StatusOK, map[string]any{
			"status":       "ok",
			"active_calls": s.manager.ActiveCount(),
		})
	case "Reservation/created", "Reservation/changed", "Reservation/canceled":
		// Future integration hook: reconcile the session's PMS cache.
		s.logger.Info("pms reservation event", "topic", hook.Topic, "type", hook.Type)
		return c.JSON(http.StatusOK, map[string]string{"status": "processed", "topic": hook.Topic})
	default:
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": "unhandled topic " + hook.Topic,
		})
	}
}

// callStartRequest is the caller-facing orchestration entrypoint body.
type callStartRequest struct {
	HotelID     string `json:"hotel_id"`
	CallerID    string `json:"caller_id,omitempty"`
	Language    string `json:"language,omitempty"`
	LawfulBasis string `json:"lawful_basis,omitempty"`
}

// callStartResponse hands the caller its media credentials.
type callStartResponse struct {
	CallID          string `json:"call_id"`
	SessionToken    string `json:"session_token"`
	WebsocketURL    string `json:"websocket_url"`
	Region          string `json:"region"`
	EncryptionKeyID string `json:"encryption_key_id"`
}

// callMetadata is the persisted call-start record.
type callMetadata struct {
	SchemaVersion int    `json:"schema_version"`
	HotelID       string `json:"hotel_id"`
	CallerIDHash  string `json:"caller_id_hash,omitempty"`
	Language      string `json:"language"`
	StartedAt     string `json:"started_at"`
	Region        string `json:"region"`
	LawfulBasis   string `json:"lawful_basis"`
}

func (s *Server) handleCallStart(c echo.Context) error {
	authID, err := s.authorizeCallStart(c.Request())
	if err != nil {
		s.logger.Warn("rejected call start", "remote", c.RealIP(), "error", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	var req callStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed body"})
	}
	if req.HotelID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "hotel_id is required"})
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if req.LawfulBasis == "" {
		req.LawfulBasis = "contract"
	}

	callID := uuid.NewString()

	meta := callMetadata{
		SchemaVersion: session.SchemaVersion,
		HotelID:       req.HotelID,
		Language:      req.Language,
		StartedAt:     s.now().UTC().Format(time.RFC3339),
		Region:        s.cfg.Region,
		LawfulBasis:   req.LawfulBasis,
	}
	if req.CallerID != "" {
		sum := sha256.Sum256([]byte(req.CallerID))
		meta.CallerIDHash = hex.EncodeToString(sum[:])
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	retention := time.Duration(s.cfg.RetentionDays) * 24 * time.Hour
	if err := s.kv.SetEx(c.Request().Context(), store.CallMetaKey(callID), raw, retention); err != nil {
		s.logger.Error("call metadata write failed", "call_id", callID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	// Consent records outlive individual calls; one year per purpose.
	consent, _ := json.Marshal(map[string]string{
		"lawful_basis": req.LawfulBasis,
		"recorded_at":  meta.StartedAt,
	})
	if err := s.kv.SetEx(c.Request().Context(), store.ConsentKey(req.HotelID, "call_processing"), consent, 365*24*time.Hour); err != nil {
		s.logger.Warn("consent record write failed", "hotel_id", req.HotelID, "error", err)
	}

	s.logger.Info("call start authorized",
		"call_id", callID, "hotel_id", req.HotelID, "auth_id", authID, "region", s.cfg.Region)

	return c.JSON(http.StatusOK, callStartResponse{
		CallID:          callID,
		SessionToken:    sessionToken(callID, authID),
		WebsocketURL:    s.cfg.MediaWSURL,
		Region:          s.cfg.Region,
		EncryptionKeyID: s.cfg.EncryptionKeyID,
	})
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"active_calls": s.manager.ActiveCount(),
	})
}
