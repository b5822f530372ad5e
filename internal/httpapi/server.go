// Package httpapi is the HTTP ingress for the call orchestrator.
//
// It authenticates and routes media-plane events, ASR callbacks, PMS
// webhooks and the caller-facing call-start endpoint, handing validated
// events to the session manager. Invalid or unsigned payloads are rejected
// here; the session manager never sees them.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicehive/voicehive/internal/health"
	"github.com/voicehive/voicehive/internal/observe"
	"github.com/voicehive/voicehive/internal/session"
	"github.com/voicehive/voicehive/internal/store"
)

// Config carries the ingress secrets and deployment identifiers.
type Config struct {
	// EventToken is the shared bearer secret for /call/event and the
	// LiveKit webhook endpoints.
	EventToken string

	// ApaleoSecret is the HMAC-SHA256 key for PMS webhook signatures.
	ApaleoSecret string

	// ApaleoAllowedIPs restricts the PMS webhook to these source addresses.
	// Empty disables the allowlist (development only).
	ApaleoAllowedIPs []string

	// JWTSecret verifies /v1/call/start tokens (HS256).
	JWTSecret []byte

	// Region tags call metadata and the call-start response.
	Region string

	// MediaWSURL is the media websocket base URL handed to callers.
	MediaWSURL string

	// EncryptionKeyID identifies the media encryption key in call-start
	// responses.
	EncryptionKeyID string

	// RetentionDays bounds how long call-start metadata is kept.
	RetentionDays int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics wires the OTel instruments and enables the HTTP middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithReadinessChecks adds checkers to /readyz beyond the built-in snapshot
// store probe, e.g. one per configured PMS backend.
func WithReadinessChecks(checks ...health.Checker) Option {
	return func(s *Server) {
		s.readyChecks = append(s.readyChecks, checks...)
	}
}

// Server is the HTTP ingress. Create with NewServer, mount with Handler.
type Server struct {
	cfg         Config
	manager     *session.Manager
	kv          store.KV
	logger      *slog.Logger
	metrics     *observe.Metrics
	now         func() time.Time
	readyChecks []health.Checker
}

// NewServer creates the ingress over the session manager and metadata store.
func NewServer(cfg Config, manager *session.Manager, kv store.KV, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		kv:      kv,
		logger:  slog.Default(),
		now:     time.Now,
	}
	if s.cfg.RetentionDays <= 0 {
		s.cfg.RetentionDays = 30
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the routed echo handler.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	if s.metrics != nil {
		e.Use(echo.WrapMiddleware(observe.Middleware(s.metrics)))
	}

	e.POST("/call/event", s.handleCallEvent, s.bearerAuth)
	e.POST("/v1/livekit/webhook", s.handleLiveKitWebhook, s.bearerAuth)
	e.POST("/v1/livekit/transcription", s.handleTranscription, s.bearerAuth)
	e.POST("/v1/apaleo/webhook", s.handleApaleoWebhook)
	e.POST("/v1/call/start", s.handleCallStart)
	e.GET("/healthz", s.handleHealthz)
	e.GET("/readyz", echo.WrapHandler(http.HandlerFunc(s.readiness().Readyz)))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// readiness builds the /readyz handler. The snapshot store is probed with a
// read; a missing key is a healthy answer, only transport errors fail the
// check.
func (s *Server) readiness() *health.Handler {
	checks := append([]health.Checker{{
		Name: "snapshots",
		Check: func(ctx context.Context) error {
			_, err := s.kv.Get(ctx, "readyz:probe")
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		},
	}}, s.readyChecks...)
	return health.New(checks...)
}
