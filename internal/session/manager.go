package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/voicehive/voicehive/internal/flow"
	"github.com/voicehive/voicehive/internal/intent"
	"github.com/voicehive/voicehive/internal/observe"
	"github.com/voicehive/voicehive/internal/respond"
	"github.com/voicehive/voicehive/internal/slots"
	"github.com/voicehive/voicehive/internal/speech"
	"github.com/voicehive/voicehive/internal/store"
	"github.com/voicehive/voicehive/internal/tools"
	"github.com/voicehive/voicehive/internal/transcript"
)

const (
	// DefaultSnapshotTTL is the sliding persistence TTL for call snapshots.
	DefaultSnapshotTTL = time.Hour

	// DefaultPersistTimeout bounds one snapshot write.
	DefaultPersistTimeout = 2 * time.Second
)

// Deps bundles the pipeline components the manager drives per turn.
// Corrector is optional; when set, final transcriptions are normalised
// against the hotel vocabulary before intent detection.
type Deps struct {
	Detector  *intent.Detector
	Extractor *slots.Extractor
	Flow      *flow.Controller
	Responder *respond.Coordinator
	Speaker   *speech.Coordinator
	Corrector *transcript.Corrector
	Store     store.KV
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics wires the OTel instruments. A nil Metrics disables recording.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) {
		m.metrics = met
	}
}

// WithSnapshotTTL overrides the sliding snapshot TTL. The default is 1 h.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.snapshotTTL = ttl
	}
}

// WithPersistTimeout bounds each snapshot write. The default is 2 s.
func WithPersistTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.persistTimeout = d
	}
}

// WithHotelNames sets the hotel_id → display name table used in greetings
// and the LLM persona.
func WithHotelNames(names map[string]string) Option {
	return func(m *Manager) {
		m.hotelNames = names
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides call-id generation. Intended for tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.newID = gen
	}
}

// lane serializes mutations for one session. ending is set the moment a
// call_ended event arrives so an in-flight turn suppresses its emission.
type lane struct {
	mu     sync.Mutex
	s      *Session
	ending atomic.Bool
}

// Manager owns every live call session and routes inbound events to their
// handlers. Events for the same session run strictly one at a time; events
// for different sessions proceed in parallel.
type Manager struct {
	deps           Deps
	logger         *slog.Logger
	metrics        *observe.Metrics
	snapshotTTL    time.Duration
	persistTimeout time.Duration
	hotelNames     map[string]string
	now            func() time.Time
	newID          func() string

	mu    sync.RWMutex
	lanes map[string]*lane  // call_id → lane
	rooms map[string]string // room_name → call_id
}

// NewManager creates a session manager over the given pipeline components.
func NewManager(deps Deps, opts ...Option) *Manager {
	m := &Manager{
		deps:           deps,
		logger:         slog.Default(),
		snapshotTTL:    DefaultSnapshotTTL,
		persistTimeout: DefaultPersistTimeout,
		now:            time.Now,
		newID:          func() string { return uuid.NewString() },
		lanes:          make(map[string]*lane),
		rooms:          make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Handle routes one inbound event to its handler and returns the structured
// reply. It never panics the caller with an error: every failure mode maps to
// a Reply status.
func (m *Manager) Handle(ctx context.Context, ev Event) Reply {
	ctx, span := observe.StartSpan(ctx, "session.handle")
	defer span.End()

	var reply Reply
	switch e := ev.(type) {
	case AgentReady:
		reply = m.handleAgentReady(ctx, e)
	case CallStarted:
		reply = m.handleCallStarted(ctx, e)
	case Transcription:
		reply = m.handleTranscription(ctx, e)
	case DTMF:
		reply = m.handleDTMF(ctx, e)
	case CallEnded:
		reply = m.handleCallEnded(ctx, e)
	default:
		m.logger.Warn("unknown event ignored", "event", ev.Name(), "room", ev.Room())
		reply = Reply{Status: "ignored", Action: "ready", Message: "unknown event " + ev.Name()}
	}
	m.metrics.RecordEvent(ctx, ev.Name(), reply.Status)
	return reply
}

// ActiveCount reports the number of sessions in the in-memory index.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lanes)
}

// Snapshot returns a copy of the session, from memory when live, otherwise
// from the persisted snapshot. The copy is detached: mutating it does not
// affect the live session.
func (m *Manager) Snapshot(ctx context.Context, callID string) (*Session, error) {
	m.mu.RLock()
	ln, ok := m.lanes[callID]
	m.mu.RUnlock()

	var raw []byte
	if ok {
		ln.mu.Lock()
		var err error
		raw, err = json.Marshal(ln.s)
		ln.mu.Unlock()
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		raw, err = m.deps.Store.Get(ctx, store.CallKey(callID))
		if err != nil {
			return nil, err
		}
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// --- Event handlers ---

func (m *Manager) handleAgentReady(ctx context.Context, ev AgentReady) Reply {
	m.mu.Lock()
	if callID, ok := m.rooms[ev.RoomName]; ok {
		// Webhooks are at-least-once; redelivery must not duplicate the
		// session.
		m.mu.Unlock()
		m.logger.Debug("agent_ready redelivered", "room", ev.RoomName, "call_id", callID)
		return Reply{Status: "ready", Action: "ready", Metadata: map[string]any{"call_id": callID}}
	}

	s := newSession(m.newID(), ev.RoomName, ev.HotelID, m.now())
	if err := s.SetLifecycle(LifecycleConnecting); err != nil {
		m.mu.Unlock()
		return m.errorReply(ev, err)
	}
	ln := &lane{s: s}
	m.lanes[s.CallID] = ln
	m.rooms[ev.RoomName] = s.CallID
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveCalls.Add(ctx, 1)
	}
	m.logger.Info("session provisioned",
		"call_id", s.CallID, "room", ev.RoomName, "hotel_id", ev.HotelID)

	ln.mu.Lock()
	m.persist(ctx, s)
	ln.mu.Unlock()

	return Reply{Status: "ready", Action: "ready", Metadata: map[string]any{"call_id": s.CallID}}
}

func (m *Manager) handleCallStarted(ctx context.Context, ev CallStarted) Reply {
	ln, ok := m.lookup(ev.RoomName)
	if !ok {
		return m.noSession(ev)
	}

	ln.mu.Lock()
	defer ln.mu.Unlock()
	s := ln.s

	if Final(s.Lifecycle) {
		return m.errorReplyf(ev, "session %s already %s", s.CallID, s.Lifecycle)
	}
	if err := s.SetLifecycle(LifecycleActive); err != nil {
		return m.errorReply(ev, err)
	}
	if ev.Language != "" {
		s.Language = shortCode(ev.Language)
	}
	s.Participant = ev.Participant

	text := Greeting(s.Language, m.hotelName(s.HotelID))
	syn := m.speak(ctx, s, text)

	s.appendTurn(Turn{
		Role:     "assistant",
		Type:     "text",
		Content:  text,
		Language: s.Language,
		Metadata: synthesisMetadata(syn),
		At:       m.now(),
	})
	m.persist(ctx, s)

	m.logger.Info("call started",
		"call_id", s.CallID, "room", ev.RoomName, "language", s.Language)

	reply := Reply{
		Status:   "started",
		Action:   "speak",
		Text:     text,
		Language: s.Language,
		Metadata: map[string]any{
			"call_id":            s.CallID,
			"conversation_state": string(s.State),
		},
	}
	attachAudio(&reply, syn)
	return reply
}

func (m *Manager) handleTranscription(ctx context.Context, ev Transcription) Reply {
	if !ev.IsFinal {
		return Reply{Status: "processed", Action: "partial"}
	}

	ln, ok := m.lookup(ev.RoomName)
	if !ok {
		return m.noSession(ev)
	}

	ln.mu.Lock()
	defer ln.mu.Unlock()
	s := ln.s

	if Final(s.Lifecycle) {
		return m.errorReplyf(ev, "session %s already %s", s.CallID, s.Lifecycle)
	}
	if ev.Language != "" {
		s.Language = shortCode(ev.Language)
	}
	s.Latency.ASRMS += ev.DurationMS
	m.record(ctx, func(met *observe.Metrics) metric.Float64Histogram { return met.ASRDuration },
		time.Duration(ev.DurationMS)*time.Millisecond)

	// 0. Vocabulary correction of the raw transcription.
	text := ev.Text
	var turnMeta map[string]any
	if m.deps.Corrector != nil {
		if res := m.deps.Corrector.Correct(ev.Text); len(res.Corrections) > 0 {
			text = res.Corrected
			turnMeta = map[string]any{"corrected_from": ev.Text}
			m.logger.Debug("transcription corrected",
				"call_id", s.CallID, "corrections", len(res.Corrections))
		}
	}

	// 1. Intent detection.
	det := m.deps.Detector.Detect(ctx, text, s.Language)
	s.Latency.IntentMS += det.ProcessingTime.Milliseconds()
	s.IntentHistory = append(s.IntentHistory, string(det.PrimaryIntent()))
	m.record(ctx, func(met *observe.Metrics) metric.Float64Histogram { return met.IntentDuration },
		det.ProcessingTime)

	// 2. Slot extraction for the task being filled.
	task := s.PendingIntent
	if task == "" {
		task = det.PrimaryIntent()
	}
	var extracted map[string]slots.Slot
	if req, needs := flow.SlotsFor(task); needs {
		ext := m.deps.Extractor.Extract(text, req.Required, req.Optional)
		extracted = ext.Filled
		s.mergeSlots(extracted)
		s.PendingIntent = task
	}

	// History is replayed up to but excluding the current utterance.
	history := turnHistory(s)

	// 3. Record the user turn.
	s.appendTurn(Turn{
		Role:      "user",
		Type:      "text",
		Content:   text,
		Language:  s.Language,
		Detection: &det,
		Slots:     extracted,
		Metadata:  turnMeta,
		At:        m.now(),
	})

	// 4. Flow decision and state transition.
	dec, err := m.deps.Flow.Decide(ctx, flow.Input{
		Current:               s.State,
		Detection:             det,
		Utterance:             text,
		Filled:                s.filledSlots(),
		PendingIntent:         s.PendingIntent,
		UpsellAvailable:       s.UpsellCandidate,
		ClarificationAttempts: s.ClarificationAttempts,
	})
	if err != nil {
		m.logger.Error("flow decision failed",
			"call_id", s.CallID, "state", string(s.State), "error", err)
		return m.errorReply(ev, err)
	}
	m.applyDecision(s, dec, task)

	// 5. LLM response with tool loop.
	resp := m.deps.Responder.Respond(ctx, callRef{s: s}, respond.Input{
		Utterance: text,
		Language:  s.Language,
		State:     string(s.State),
		HotelName: m.hotelName(s.HotelID),
		Detection: det,
		Reasoning: dec.Reasoning,
		History:   history,
	})
	s.Latency.LLMMS += resp.LLMLatencyMS
	m.record(ctx, func(met *observe.Metrics) metric.Float64Histogram { return met.LLMDuration },
		time.Duration(resp.LLMLatencyMS)*time.Millisecond)
	if resp.FallbackUsed {
		m.metrics.RecordFallback(ctx, "llm_template")
	}

	// 6. Synthesis.
	syn := m.speak(ctx, s, resp.Text)

	// 7. Record the assistant turn and persist.
	meta := synthesisMetadata(syn)
	meta["fallback_used"] = resp.FallbackUsed
	s.appendTurn(Turn{
		Role:      "assistant",
		Type:      "text",
		Content:   resp.Text,
		Language:  s.Language,
		ToolCalls: resp.ToolsInvoked,
		Metadata:  meta,
		At:        m.now(),
	})
	m.persist(ctx, s)

	// 8. Emit, unless the call ended while this turn was in flight.
	if ln.ending.Load() {
		m.logger.Info("response suppressed, call ended mid-turn", "call_id", s.CallID)
		return Reply{Status: "processed", Action: "ended", Message: "call ended during processing"}
	}

	reply := Reply{
		Status:   "processed",
		Action:   "speak",
		Text:     resp.Text,
		Language: s.Language,
		Metadata: map[string]any{
			"call_id":            s.CallID,
			"detected_intents":   det.Names(),
			"primary_intent":     string(det.PrimaryIntent()),
			"conversation_state": string(s.State),
			"flow_confidence":    dec.Confidence,
			"tools_invoked":      resp.ToolsInvoked,
			"fallback_used":      resp.FallbackUsed,
		},
	}
	mergeSynthesisMetadata(reply.Metadata, syn)
	attachAudio(&reply, syn)
	return reply
}

// dtmfActions is the fixed keypad table.
var dtmfActions = map[string]string{
	"1": "booking_inquiry",
	"2": "request_info",
	"3": "concierge_services",
	"4": "spa_booking",
	"0": "operator_transfer",
	"*": "main_menu",
	"#": "repeat",
}

// dtmfIntents maps keypad actions to the intent recorded for the turn.
var dtmfIntents = map[string]intent.Intent{
	"booking_inquiry":    intent.BookingInquiry,
	"request_info":       intent.RequestInfo,
	"concierge_services": intent.ConciergeServices,
	"spa_booking":        intent.SpaBooking,
	"operator_transfer":  intent.TransferToOperator,
}

func (m *Manager) handleDTMF(ctx context.Context, ev DTMF) Reply {
	ln, ok := m.lookup(ev.RoomName)
	if !ok {
		return m.noSession(ev)
	}

	ln.mu.Lock()
	defer ln.mu.Unlock()
	s := ln.s

	if Final(s.Lifecycle) {
		return m.errorReplyf(ev, "session %s already %s", s.CallID, s.Lifecycle)
	}

	action, known := dtmfActions[ev.Digit]
	if !known {
		m.logger.Warn("unmapped dtmf digit", "call_id", s.CallID, "digit", ev.Digit)
		return Reply{Status: "ignored", Action: "dtmf_processed", Message: "unmapped digit " + ev.Digit}
	}

	s.appendTurn(Turn{
		Role:     "user",
		Type:     "dtmf",
		Content:  ev.Digit,
		Language: s.Language,
		At:       m.now(),
	})

	textAction := action
	if action == "repeat" {
		textAction = "main_menu"
	}
	text := dtmfText(textAction, s.Language)

	replyAction := "speak"
	if action == "main_menu" || action == "repeat" {
		// Pure menu navigation: no intent, no transition.
		replyAction = "dtmf_processed"
	}

	in, hasIntent := dtmfIntents[action]
	if hasIntent {
		s.IntentHistory = append(s.IntentHistory, string(in))
		if _, needs := flow.SlotsFor(in); needs {
			s.PendingIntent = in
		}
		target := flow.StateSlotFilling
		if in == intent.TransferToOperator {
			target = flow.StateEscalation
			s.EscalationReasons = append(s.EscalationReasons, "caller pressed 0 for an operator")
		} else if in == intent.RequestInfo {
			target = flow.StateInfoGathering
		}
		m.transitionTo(s, target)
	}

	syn := m.speak(ctx, s, text)
	s.appendTurn(Turn{
		Role:     "assistant",
		Type:     "dtmf_response",
		Content:  text,
		Language: s.Language,
		Metadata: synthesisMetadata(syn),
		At:       m.now(),
	})
	m.persist(ctx, s)

	meta := map[string]any{
		"call_id":            s.CallID,
		"dtmf_digit":         ev.Digit,
		"conversation_state": string(s.State),
	}
	if hasIntent {
		meta["primary_intent"] = string(in)
	}
	mergeSynthesisMetadata(meta, syn)

	reply := Reply{
		Status:   "processed",
		Action:   replyAction,
		Text:     text,
		Language: s.Language,
		Metadata: meta,
	}
	attachAudio(&reply, syn)
	return reply
}

func (m *Manager) handleCallEnded(ctx context.Context, ev CallEnded) Reply {
	ln, ok := m.lookup(ev.RoomName)
	if !ok {
		// Teardown is at-least-once; the session may already be evicted.
		m.logger.Debug("call_ended for unknown room", "room", ev.RoomName)
		return Reply{Status: "ignored", Action: "ended", Message: "no session for room " + ev.RoomName}
	}

	// Flag first: an in-flight turn holding the lane suppresses its emission
	// once it completes.
	ln.ending.Store(true)

	ln.mu.Lock()
	defer ln.mu.Unlock()
	s := ln.s

	if Final(s.Lifecycle) {
		return Reply{Status: "ended", Action: "ended", Metadata: map[string]any{"call_id": s.CallID}}
	}

	if err := s.SetLifecycle(LifecycleEnding); err != nil {
		return m.errorReply(ev, err)
	}
	if err := s.SetLifecycle(LifecycleEnded); err != nil {
		return m.errorReply(ev, err)
	}
	// call_ended forces closing regardless of the graph position.
	s.State = flow.StateClosing
	ended := m.now()
	s.EndedAt = &ended

	m.persist(ctx, s)

	m.mu.Lock()
	delete(m.lanes, s.CallID)
	delete(m.rooms, s.RoomName)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveCalls.Add(ctx, -1)
	}

	duration := s.Duration(ended)
	m.logger.Info("call ended",
		"call_id", s.CallID,
		"room", s.RoomName,
		"reason", ev.Reason,
		"duration_ms", duration.Milliseconds(),
		"turns", len(s.Turns),
		"trace_id", observe.CorrelationID(ctx))

	return Reply{
		Status: "ended",
		Action: "ended",
		Metadata: map[string]any{
			"call_id":     s.CallID,
			"duration_ms": duration.Milliseconds(),
			"turns":       len(s.Turns),
		},
	}
}

// --- Internals ---

// applyDecision walks the decision's intermediate states and lands on the
// next state, then updates the clarification counter and task bookkeeping.
func (m *Manager) applyDecision(s *Session, dec flow.Decision, task intent.Intent) {
	for _, via := range dec.Via {
		s.State = via
	}
	s.State = dec.NextState

	if s.State == flow.StateClarification {
		s.ClarificationAttempts++
	} else {
		s.ClarificationAttempts = 0
	}

	switch s.State {
	case flow.StateExecution:
		s.completeActiveSlots()
		if task == intent.BookingInquiry {
			s.UpsellCandidate = true
		}
		s.PendingIntent = ""
	case flow.StateUpselling:
		s.UpsellCandidate = false
	}
}

// transitionTo forces the conversation state towards target along legal
// edges. Used by DTMF actions that bypass the flow controller.
func (m *Manager) transitionTo(s *Session, target flow.State) {
	via, ok := flow.Route(s.State, target)
	if !ok {
		m.logger.Error("no path to forced state",
			"call_id", s.CallID, "from", string(s.State), "to", string(target))
		return
	}
	for _, v := range via {
		s.State = v
	}
	s.State = target
}

// speak synthesizes text, accounting latency and the text-only fallback.
// Returns nil when synthesis failed; the call proceeds text-only.
func (m *Manager) speak(ctx context.Context, s *Session, text string) *speech.Synthesis {
	if m.deps.Speaker == nil {
		return nil
	}
	syn, err := m.deps.Speaker.Speak(ctx, text, s.Language)
	if err != nil {
		m.metrics.RecordFallback(ctx, "tts_text_only")
		return nil
	}
	s.Latency.TTSMS += syn.Latency.Milliseconds()
	m.record(ctx, func(met *observe.Metrics) metric.Float64Histogram { return met.TTSDuration },
		syn.Latency)
	return syn
}

// persist writes the session snapshot with the sliding TTL. Write failures
// are logged and swallowed: the in-memory session stays authoritative.
func (m *Manager) persist(ctx context.Context, s *Session) {
	raw, err := json.Marshal(s)
	if err != nil {
		m.logger.Error("session snapshot marshal failed", "call_id", s.CallID, "error", err)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.persistTimeout)
	defer cancel()

	start := m.now()
	if err := m.deps.Store.SetEx(pctx, store.CallKey(s.CallID), raw, m.snapshotTTL); err != nil {
		m.logger.Error("session snapshot write failed", "call_id", s.CallID, "error", err)
		return
	}
	m.record(ctx, func(met *observe.Metrics) metric.Float64Histogram { return met.PersistDuration },
		m.now().Sub(start))
}

func (m *Manager) lookup(room string) (*lane, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	callID, ok := m.rooms[room]
	if !ok {
		return nil, false
	}
	ln, ok := m.lanes[callID]
	return ln, ok
}

func (m *Manager) hotelName(hotelID string) string {
	if name, ok := m.hotelNames[hotelID]; ok {
		return name
	}
	return "VoiceHive Hotel"
}

func (m *Manager) record(ctx context.Context, pick func(*observe.Metrics) metric.Float64Histogram, d time.Duration) {
	if m.metrics == nil {
		return
	}
	pick(m.metrics).Record(ctx, d.Seconds())
}

func (m *Manager) noSession(ev Event) Reply {
	m.logger.Error("no session for event", "event", ev.Name(), "room", ev.Room())
	return Reply{Status: "error", Action: "ready", Message: "no session for room " + ev.Room()}
}

func (m *Manager) errorReply(ev Event, err error) Reply {
	m.logger.Error("event handling failed", "event", ev.Name(), "room", ev.Room(), "error", err)
	return Reply{Status: "error", Action: "ready", Message: err.Error()}
}

func (m *Manager) errorReplyf(ev Event, format string, args ...any) Reply {
	msg := fmt.Sprintf(format, args...)
	m.logger.Error("event handling failed", "event", ev.Name(), "room", ev.Room(), "message", msg)
	return Reply{Status: "error", Action: "ready", Message: msg}
}

// turnHistory converts the session's spoken turns into LLM replay input.
func turnHistory(s *Session) []respond.Turn {
	hist := s.history()
	out := make([]respond.Turn, 0, len(hist))
	for _, t := range hist {
		out = append(out, respond.Turn{Role: t.Role, Content: t.Content})
	}
	return out
}

// synthesisMetadata builds the response metadata bag for a synthesis
// outcome. A nil synthesis reports null engine fields so consumers can tell
// text-only responses apart.
func synthesisMetadata(syn *speech.Synthesis) map[string]any {
	if syn == nil {
		return map[string]any{"tts_engine": nil, "tts_cached": false}
	}
	return map[string]any{
		"tts_engine":  syn.Engine,
		"tts_cached":  syn.Cached,
		"duration_ms": syn.DurationMS,
	}
}

func mergeSynthesisMetadata(meta map[string]any, syn *speech.Synthesis) {
	for k, v := range synthesisMetadata(syn) {
		meta[k] = v
	}
}

func attachAudio(r *Reply, syn *speech.Synthesis) {
	if syn == nil {
		return
	}
	r.AudioData = syn.Audio
	r.AudioFormat = syn.Format
}

// callRef adapts a locked session to the tool dispatcher's call context.
// Only valid while the session's lane is held.
type callRef struct {
	s *Session
}

var _ tools.CallContext = callRef{}

func (c callRef) CallID() string   { return c.s.CallID }
func (c callRef) HotelID() string  { return c.s.HotelID }
func (c callRef) Language() string { return c.s.Language }

func (c callRef) AddEscalationReason(reason string) {
	c.s.EscalationReasons = append(c.s.EscalationReasons, reason)
}

func (c callRef) RecordUpsell(record string) {
	c.s.Upsells = append(c.s.Upsells, record)
	if strings.HasPrefix(record, "offered:") || strings.HasPrefix(record, "accepted:") {
		c.s.UpsellCandidate = false
	}
}
