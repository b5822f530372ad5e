// Package app wires all VoiceHive subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown tears
// everything down in order. Providers are instantiated by main via the
// config registry and handed in; test doubles are injected the same way.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicehive/voicehive/internal/config"
	"github.com/voicehive/voicehive/internal/flow"
	"github.com/voicehive/voicehive/internal/health"
	"github.com/voicehive/voicehive/internal/httpapi"
	"github.com/voicehive/voicehive/internal/intent"
	"github.com/voicehive/voicehive/internal/media"
	"github.com/voicehive/voicehive/internal/observe"
	"github.com/voicehive/voicehive/internal/pms"
	"github.com/voicehive/voicehive/internal/pms/apaleo"
	"github.com/voicehive/voicehive/internal/respond"
	"github.com/voicehive/voicehive/internal/session"
	"github.com/voicehive/voicehive/internal/slots"
	"github.com/voicehive/voicehive/internal/speech"
	"github.com/voicehive/voicehive/internal/store"
	"github.com/voicehive/voicehive/internal/tools"
	"github.com/voicehive/voicehive/internal/transcript"
	"github.com/voicehive/voicehive/pkg/provider/llm"
	"github.com/voicehive/voicehive/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured; the pipeline then degrades (template replies,
// text-only responses) instead of failing.
type Providers struct {
	LLM llm.Provider
	TTS tts.Provider
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithMetrics wires the OTel instruments. Nil leaves telemetry off.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithStore injects a snapshot store instead of creating one from config.
func WithStore(kv store.KV) Option {
	return func(a *App) {
		a.kv = kv
	}
}

// WithHTTPClient sets the shared outbound HTTP client. main passes the same
// client it hands to the provider factories so PMS, LLM and TTS traffic all
// reuse one connection pool. Defaults to NewOutboundClient(cfg.HTTPPool).
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.httpClient = c
	}
}

// NewOutboundClient builds the pooled HTTP client every outbound call goes
// through. Per-call deadlines come from contexts, not a client timeout.
func NewOutboundClient(pool config.HTTPPoolConfig) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: pool.MaxIdleConnsPerHost,
			MaxConnsPerHost:     pool.MaxConnsPerHost,
		},
	}
}

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observe.Metrics

	kv         store.KV
	httpClient *http.Client
	manager    *session.Manager
	server     *http.Server
	media      *media.Client

	stopOnce sync.Once
}

// New assembles the application from config and providers.
func New(ctx context.Context, cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}

	if a.kv == nil {
		kv, err := newStore(ctx, cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.kv = kv
	}

	// All outbound HTTP (PMS, and the LLM/TTS providers when main wires
	// them with the same client) shares one pooled transport.
	outbound := a.httpClient
	if outbound == nil {
		outbound = NewOutboundClient(cfg.HTTPPool)
	}

	factory := pms.NewFactory()
	hotelInfo := make(map[string]tools.HotelInfo, len(cfg.Hotels))
	hotelNames := make(map[string]string, len(cfg.Hotels))
	vocabulary := transcript.DefaultVocabulary()
	var pmsChecks []health.Checker
	for _, h := range cfg.Hotels {
		hotelNames[h.ID] = h.Name
		hotelInfo[h.ID] = tools.HotelInfo{Name: h.Name}
		vocabulary = append(vocabulary, h.Name)
		if h.PMSBaseURL == "" {
			continue
		}
		key := h.PMSAPIKey
		// No client-level timeout: the dispatcher bounds every PMS call
		// with its own context deadline, and the client is shared.
		conn := apaleo.New(h.PMSBaseURL, h.PMSPropertyID,
			apaleo.WithHTTPClient(outbound),
			apaleo.WithTokenSource(func() string { return key }),
		)
		factory.Register(h.ID, conn)
		pmsChecks = append(pmsChecks, health.Checker{Name: "pms:" + h.ID, Check: conn.Health})
	}

	dispatcher := tools.NewDispatcher(factory,
		tools.WithLogger(a.logger),
		tools.WithHotelInfo(hotelInfo),
		tools.WithPMSTimeout(cfg.Timeouts.PMS),
	)
	responder := respond.NewCoordinator(providers.LLM, dispatcher,
		respond.WithLogger(a.logger),
		respond.WithRoundTimeout(cfg.Timeouts.LLMRound),
		respond.WithLoopTimeout(cfg.Timeouts.ToolLoop),
	)

	var speaker *speech.Coordinator
	if providers.TTS != nil {
		speaker = speech.NewCoordinator(providers.TTS,
			speech.WithLogger(a.logger),
			speech.WithAttemptTimeout(cfg.Timeouts.TTSAttempt),
		)
	}

	a.manager = session.NewManager(session.Deps{
		Detector:  intent.NewDetector(),
		Extractor: slots.NewExtractor(),
		Flow:      flow.NewController(),
		Responder: responder,
		Speaker:   speaker,
		Corrector: transcript.NewCorrector(vocabulary),
		Store:     a.kv,
	},
		session.WithLogger(a.logger),
		session.WithMetrics(a.metrics),
		session.WithSnapshotTTL(cfg.Timeouts.SnapshotTTL),
		session.WithPersistTimeout(cfg.Timeouts.Persist),
		session.WithHotelNames(hotelNames),
	)

	ingress := httpapi.NewServer(httpapi.Config{
		EventToken:       cfg.Media.Token,
		ApaleoSecret:     cfg.Auth.ApaleoSecret,
		ApaleoAllowedIPs: cfg.Auth.ApaleoAllowedIPs,
		JWTSecret:        []byte(cfg.Auth.JWTSecret),
		Region:           cfg.Compliance.Region,
		MediaWSURL:       cfg.Media.PublicWSURL,
		EncryptionKeyID:  cfg.Compliance.EncryptionKeyID,
		RetentionDays:    cfg.Compliance.RetentionDays,
	}, a.manager, a.kv,
		httpapi.WithLogger(a.logger),
		httpapi.WithMetrics(a.metrics),
		httpapi.WithReadinessChecks(pmsChecks...),
	)
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           ingress.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Media.WSURL != "" {
		mc, err := media.NewClient(cfg.Media.WSURL, cfg.Media.Token, a.manager,
			media.WithLogger(a.logger),
			media.WithMetrics(a.metrics),
		)
		if err != nil {
			return nil, fmt.Errorf("app: media client: %w", err)
		}
		a.media = mc
	}

	return a, nil
}

// newStore selects the snapshot backend from config.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.KV, error) {
	if cfg.Redis.URL == "" {
		logger.Warn("no redis configured, using in-memory snapshots")
		return store.NewMemory(), nil
	}
	kv, err := store.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("app: redis: %w", err)
	}
	return kv, nil
}

// Manager exposes the session manager, mainly for tests and diagnostics.
func (a *App) Manager() *session.Manager {
	return a.manager
}

// Run serves HTTP and the media link until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http ingress listening", "addr", a.server.Addr)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.media != nil {
		g.Go(func() error {
			err := a.media.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// Shutdown releases resources held outside Run. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		if closer, ok := a.kv.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				err = fmt.Errorf("app: close store: %w", cerr)
			}
		}
	})
	return err
}
