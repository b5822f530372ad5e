// Command voicehive is the main entry point for the VoiceHive call
// orchestrator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicehive/voicehive/internal/app"
	"github.com/voicehive/voicehive/internal/config"
	"github.com/voicehive/voicehive/internal/observe"
	"github.com/voicehive/voicehive/internal/resilience"
	"github.com/voicehive/voicehive/pkg/provider/llm"
	llmopenai "github.com/voicehive/voicehive/pkg/provider/llm/openai"
	"github.com/voicehive/voicehive/pkg/provider/tts"
	"github.com/voicehive/voicehive/pkg/provider/tts/elevenlabs"
	ttsrouter "github.com/voicehive/voicehive/pkg/provider/tts/router"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch-config", true, "reload the configuration file when it changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voicehive: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voicehive: %v\n", err)
		}
		return 1
	}

	// The level var lets the config watcher change verbosity at runtime.
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("voicehive starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"region", cfg.Compliance.Region,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so every later constructor can bind instruments.
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voicehive",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// One pooled client for every outbound HTTP call (LLM, TTS, PMS).
	httpClient := app.NewOutboundClient(cfg.HTTPPool)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg, httpClient)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithLogger(logger),
		app.WithMetrics(metrics),
		app.WithHTTPClient(httpClient),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// Config watcher: log level changes apply live, everything else is
	// logged as needing a restart.
	if *watch {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			d := config.Diff(old, new)
			if d.LogLevelChanged {
				level.Set(slogLevel(d.NewLogLevel))
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			if d.HotelsChanged {
				for _, hc := range d.HotelChanges {
					slog.Warn("hotel config changed; restart to apply", "hotel_id", hc.ID,
						"added", hc.Added, "removed", hc.Removed, "pms_changed", hc.PMSChanged)
				}
			}
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with
// VoiceHive into reg. Every factory hands the shared pooled client to its
// provider so outbound traffic reuses one connection pool.
func registerBuiltinProviders(reg *config.Registry, httpClient *http.Client) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		opts := []llmopenai.Option{
			llmopenai.WithHTTPClient(httpClient),
		}
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// Azure deployments use the same client but authenticate with an
	// api-key header against the deployment endpoint.
	reg.RegisterLLM("azure-openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		opts := []llmopenai.Option{
			llmopenai.WithHTTPClient(httpClient),
			llmopenai.WithHeader("api-key", entry.APIKey),
		}
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("router", func(entry config.ProviderEntry) (tts.Provider, error) {
		opts := []ttsrouter.Option{
			ttsrouter.WithHTTPClient(httpClient),
		}
		if format := optString(entry.Options, "output_format"); format != "" {
			opts = append(opts, ttsrouter.WithDefaultFormat(format))
		}
		return ttsrouter.New(entry.BaseURL, opts...), nil
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		opts := []elevenlabs.Option{
			elevenlabs.WithHTTPClient(httpClient),
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := optString(entry.Options, "voice_id"); voice != "" {
			opts = append(opts, elevenlabs.WithVoice(voice))
		}
		if format := optString(entry.Options, "output_format"); format != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(format))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})
}

// buildProviders instantiates the providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (app.Providers, error) {
	var ps app.Providers

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not built in — skipping", "kind", "llm", "name", name)
		} else if err != nil {
			return ps, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			ps.LLM = p
			slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)
		}
	}

	if ps.LLM != nil && len(cfg.Providers.LLMFallbacks) > 0 {
		fb := resilience.NewLLMFallback(ps.LLM, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.LLMFallbacks {
			p, err := reg.CreateLLM(entry)
			if err != nil {
				return ps, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("fallback provider created", "kind", "llm", "name", entry.Name)
		}
		ps.LLM = fb
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not built in — skipping", "kind", "tts", "name", name)
		} else if err != nil {
			return ps, fmt.Errorf("create tts provider %q: %w", name, err)
		} else {
			ps.TTS = p
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	if ps.TTS != nil && len(cfg.Providers.TTSFallbacks) > 0 {
		fb := resilience.NewTTSFallback(ps.TTS, cfg.Providers.TTS.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.TTSFallbacks {
			p, err := reg.CreateTTS(entry)
			if err != nil {
				return ps, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("fallback provider created", "kind", "tts", "name", entry.Name)
		}
		ps.TTS = fb
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        VoiceHive — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, "")
	printValue("Hotels", fmt.Sprintf("%d", len(cfg.Hotels)))
	if cfg.Redis.URL != "" {
		printValue("Snapshots", "redis")
	} else {
		printValue("Snapshots", "in-memory")
	}
	if cfg.Media.WSURL != "" {
		printValue("Media link", "websocket")
	} else {
		printValue("Media link", "webhook only")
	}
	if cfg.Compliance.Region != "" {
		printValue("Region", cfg.Compliance.Region)
	}
	if cfg.Server.ListenAddr != "" {
		printValue("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printValue(kind, value)
}

func printValue(key, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", key, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
