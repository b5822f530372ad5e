package httpapi_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voicehive/voicehive/internal/flow"
	"github.com/voicehive/voicehive/internal/httpapi"
	"github.com/voicehive/voicehive/internal/intent"
	"github.com/voicehive/voicehive/internal/pms"
	pmsmock "github.com/voicehive/voicehive/internal/pms/mock"
	"github.com/voicehive/voicehive/internal/respond"
	"github.com/voicehive/voicehive/internal/session"
	"github.com/voicehive/voicehive/internal/slots"
	"github.com/voicehive/voicehive/internal/speech"
	"github.com/voicehive/voicehive/internal/store"
	"github.com/voicehive/voicehive/internal/tools"
	"github.com/voicehive/voicehive/pkg/provider/llm"
	llmmock "github.com/voicehive/voicehive/pkg/provider/llm/mock"
	ttsmock "github.com/voicehive/voicehive/pkg/provider/tts/mock"
)

const (
	testEventToken = "event-secret"
	testApaleoKey  = "apaleo-secret"
	testJWTSecret  = "jwt-secret"
	testRegion     = "eu-central"
	testWSURL      = "wss://media.example.com/ws"
	testEncKeyID   = "key-2026-01"
)

func newTestServer(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()

	llmp := &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "Certainly."}}}
	kv := store.NewMemory()

	factory := pms.NewFactory()
	factory.Register("h1", &pmsmock.Connector{})

	manager := session.NewManager(session.Deps{
		Detector:  intent.NewDetector(),
		Extractor: slots.NewExtractor(),
		Flow:      flow.NewController(),
		Responder: respond.NewCoordinator(llmp, tools.NewDispatcher(factory)),
		Speaker:   speech.NewCoordinator(&ttsmock.Provider{}, speech.WithBackoff(time.Millisecond, 2*time.Millisecond)),
		Store:     kv,
	})

	srv := httpapi.NewServer(httpapi.Config{
		EventToken:      testEventToken,
		ApaleoSecret:    testApaleoKey,
		JWTSecret:       []byte(testJWTSecret),
		Region:          testRegion,
		MediaWSURL:      testWSURL,
		EncryptionKeyID: testEncKeyID,
		RetentionDays:   30,
	}, manager, kv)
	return srv.Handler(), kv
}

func postJSON(h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set(echoContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v: %s", err, rec.Body.String())
	}
	return out
}

func TestCallEvent_AuthRequired(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)
	body := map[string]any{"event": "agent_ready", "room_name": "r1"}

	if rec := postJSON(h, "/call/event", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}
	if rec := postJSON(h, "/call/event", "wrong-secret", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", rec.Code)
	}
	if rec := postJSON(h, "/call/event", testEventToken, body); rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d", rec.Code)
	}
}

func TestCallEvent_GreetingRoundTrip(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)

	ready := postJSON(h, "/call/event", testEventToken, map[string]any{
		"event":     "agent_ready",
		"room_name": "r1",
		"data":      map[string]any{"hotel_id": "h1"},
	})
	if ready.Code != http.StatusOK {
		t.Fatalf("agent_ready status = %d: %s", ready.Code, ready.Body.String())
	}

	started := postJSON(h, "/call/event", testEventToken, map[string]any{
		"event":     "call_started",
		"room_name": "r1",
	})
	out := decode(t, started)
	resp := out["response"].(map[string]any)
	if resp["status"] != "started" {
		t.Errorf("reply status = %v", resp["status"])
	}
	if text, _ := resp["text"].(string); !strings.Contains(text, "Welcome to VoiceHive Hotel") {
		t.Errorf("greeting = %q", text)
	}
}

func TestCallEvent_UnknownEventIgnored(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)
	rec := postJSON(h, "/call/event", testEventToken, map[string]any{
		"event":     "track_muted",
		"room_name": "r1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decode(t, rec); out["status"] != "ignored" {
		t.Errorf("status = %v", out["status"])
	}
}

func TestLiveKitWebhook_MapsExternalNames(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)

	rec := postJSON(h, "/v1/livekit/webhook", testEventToken, map[string]any{
		"event":     "room_started",
		"room_name": "r9",
		"data":      map[string]any{"hotel_id": "h1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if out["event"] != "agent_ready" {
		t.Errorf("mapped event = %v", out["event"])
	}

	unknown := postJSON(h, "/v1/livekit/webhook", testEventToken, map[string]any{
		"event":     "egress_started",
		"room_name": "r9",
	})
	if out := decode(t, unknown); out["status"] != "ignored" {
		t.Errorf("unknown event status = %v", out["status"])
	}
}

func TestTranscriptionEndpoint(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)

	postJSON(h, "/call/event", testEventToken, map[string]any{
		"event": "agent_ready", "room_name": "r1", "data": map[string]any{"hotel_id": "h1"},
	})
	postJSON(h, "/call/event", testEventToken, map[string]any{
		"event": "call_started", "room_name": "r1",
	})

	partial := postJSON(h, "/v1/livekit/transcription", testEventToken, map[string]any{
		"room_name": "r1", "text": "I would li", "is_final": false,
	})
	if resp := decode(t, partial)["response"].(map[string]any); resp["action"] != "partial" {
		t.Errorf("partial action = %v", resp["action"])
	}

	final := postJSON(h, "/v1/livekit/transcription", testEventToken, map[string]any{
		"room_name": "r1", "text": "I need a room for two guests", "is_final": true, "language": "en",
	})
	resp := decode(t, final)["response"].(map[string]any)
	if resp["action"] != "speak" {
		t.Errorf("final action = %v", resp["action"])
	}
	meta := resp["metadata"].(map[string]any)
	if meta["primary_intent"] != string(intent.BookingInquiry) {
		t.Errorf("primary intent = %v", meta["primary_intent"])
	}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testApaleoKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestApaleoWebhook_SignatureVerification(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"topic": "system/healthcheck"})

	// Valid signature.
	req := httptest.NewRequest(http.MethodPost, "/v1/apaleo/webhook", strings.NewReader(string(body)))
	req.Header.Set(echoContentType, "application/json")
	req.Header.Set("X-Apaleo-Signature", signBody(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid signature: status = %d: %s", rec.Code, rec.Body.String())
	}
	if out := decode(t, rec); out["status"] != "ok" {
		t.Errorf("healthcheck status = %v", out["status"])
	}

	// Tampered signature.
	req = httptest.NewRequest(http.MethodPost, "/v1/apaleo/webhook", strings.NewReader(string(body)))
	req.Header.Set("X-Apaleo-Signature", signBody([]byte("other")))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signature: status = %d", rec.Code)
	}

	// Missing signature.
	req = httptest.NewRequest(http.MethodPost, "/v1/apaleo/webhook", strings.NewReader(string(body)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing signature: status = %d", rec.Code)
	}
}

func TestApaleoWebhook_Topics(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)

	send := func(topic string) map[string]any {
		body, _ := json.Marshal(map[string]any{"topic": topic})
		req := httptest.NewRequest(http.MethodPost, "/v1/apaleo/webhook", strings.NewReader(string(body)))
		req.Header.Set(echoContentType, "application/json")
		req.Header.Set("X-Apaleo-Signature", signBody(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return decode(t, rec)
	}

	if out := send("Reservation/created"); out["status"] != "processed" {
		t.Errorf("reservation topic status = %v", out["status"])
	}
	out := send("Folio/settled")
	if out["status"] != "ignored" {
		t.Errorf("unknown topic status = %v", out["status"])
	}
	if reason, _ := out["reason"].(string); !strings.Contains(reason, "Folio/settled") {
		t.Errorf("reason = %v", out["reason"])
	}
}

func signJWT(t *testing.T, permissions []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":         "client-42",
		"permissions": permissions,
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return token
}

func TestCallStart(t *testing.T) {
	t.Parallel()

	h, kv := newTestServer(t)
	body := map[string]any{"hotel_id": "h1", "caller_id": "+491701234567", "language": "de"}

	// Valid token with the right permission.
	rec := postJSON(h, "/v1/call/start", signJWT(t, []string{"call:start"}), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)

	callID, _ := out["call_id"].(string)
	if callID == "" {
		t.Fatal("no call_id issued")
	}
	sum := sha256.Sum256([]byte(callID + ":client-42"))
	if out["session_token"] != hex.EncodeToString(sum[:]) {
		t.Error("session token is not SHA-256(call_id:auth_id)")
	}
	if out["region"] != testRegion || out["websocket_url"] != testWSURL || out["encryption_key_id"] != testEncKeyID {
		t.Errorf("response = %v", out)
	}

	// Metadata persisted with the caller id hashed, never verbatim.
	raw, err := kv.Get(context.Background(), store.CallMetaKey(callID))
	if err != nil {
		t.Fatalf("metadata not persisted: %v", err)
	}
	if strings.Contains(string(raw), "+491701234567") {
		t.Error("caller id stored in clear")
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("metadata not JSON: %v", err)
	}
	if meta["hotel_id"] != "h1" || meta["region"] != testRegion || meta["language"] != "de" {
		t.Errorf("metadata = %v", meta)
	}
	if meta["schema_version"] != float64(session.SchemaVersion) {
		t.Errorf("schema_version = %v", meta["schema_version"])
	}

	// Consent record written alongside the metadata.
	raw, err = kv.Get(context.Background(), store.ConsentKey("h1", "call_processing"))
	if err != nil {
		t.Fatalf("consent record not persisted: %v", err)
	}
	var consent map[string]string
	if err := json.Unmarshal(raw, &consent); err != nil {
		t.Fatalf("consent record not JSON: %v", err)
	}
	if consent["lawful_basis"] != "contract" {
		t.Errorf("lawful_basis = %q, want default contract", consent["lawful_basis"])
	}
}

func TestCallStart_AuthFailures(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)
	body := map[string]any{"hotel_id": "h1"}

	if rec := postJSON(h, "/v1/call/start", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}
	if rec := postJSON(h, "/v1/call/start", "not-a-jwt", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d", rec.Code)
	}
	if rec := postJSON(h, "/v1/call/start", signJWT(t, []string{"call:read"}), body); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing permission: status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if out["status"] != "ok" {
		t.Errorf("status = %v", out["status"])
	}
	if _, ok := out["active_calls"]; !ok {
		t.Error("missing active_calls")
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if out["status"] != "ok" {
		t.Errorf("status = %v", out["status"])
	}
	checks, _ := out["checks"].(map[string]any)
	if checks["snapshots"] != "ok" {
		t.Errorf("snapshots check = %v", checks["snapshots"])
	}
}
