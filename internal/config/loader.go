package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "azure-openai", "mock"},
	"tts": {"router", "elevenlabs", "mock"},
}

// Load reads the YAML configuration file at path, applies environment
// overrides, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides, fills defaults and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	ApplyEnv(cfg)
	cfg.Timeouts = cfg.Timeouts.withDefaults()
	cfg.HTTPPool = cfg.HTTPPool.withDefaults()
	if cfg.Compliance.RetentionDays <= 0 {
		cfg.Compliance.RetentionDays = 30
	}
	if cfg.Media.PublicWSURL == "" {
		cfg.Media.PublicWSURL = cfg.Media.WSURL
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the environment variables the deployment platform
// injects onto cfg. A set variable always wins over the file value.
func ApplyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Providers.TTS.BaseURL, "TTS_ROUTER_URL")
	set(&cfg.Providers.ASRURL, "ASR_URL")
	set(&cfg.Providers.LLM.BaseURL, "LLM_URL")
	set(&cfg.Providers.LLM.BaseURL, "AZURE_OPENAI_ENDPOINT")
	set(&cfg.Providers.LLM.APIKey, "AZURE_OPENAI_KEY")
	set(&cfg.Providers.LLM.Model, "AZURE_OPENAI_DEPLOYMENT")
	set(&cfg.Media.Token, "LIVEKIT_WEBHOOK_KEY")
	set(&cfg.Auth.ApaleoSecret, "APALEO_WEBHOOK_SECRET")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Compliance.Region, "REGION")
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for _, entry := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", entry.Name)
	}
	for _, entry := range cfg.Providers.TTSFallbacks {
		validateProviderName("tts", entry.Name)
	}

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; every response will use the template fallback")
		if len(cfg.Providers.LLMFallbacks) > 0 {
			errs = append(errs, errors.New("providers.llm_fallbacks set without a primary providers.llm"))
		}
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; replies will be text-only")
		if len(cfg.Providers.TTSFallbacks) > 0 {
			errs = append(errs, errors.New("providers.tts_fallbacks set without a primary providers.tts"))
		}
	}
	if cfg.Media.Token == "" {
		errs = append(errs, errors.New("media.token is required; the event endpoints refuse all traffic without it"))
	}
	if cfg.Redis.URL == "" {
		slog.Warn("redis.url is empty; session snapshots will not survive a restart")
	}
	if len(cfg.Auth.ApaleoAllowedIPs) == 0 && cfg.Auth.ApaleoSecret != "" {
		slog.Warn("auth.apaleo_allowed_ips is empty; the PMS webhook accepts any source address")
	}

	hotelIDs := make(map[string]int, len(cfg.Hotels))
	for i, h := range cfg.Hotels {
		prefix := fmt.Sprintf("hotels[%d]", i)
		if h.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else {
			if prev, ok := hotelIDs[h.ID]; ok {
				errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of hotels[%d]", prefix, h.ID, prev))
			}
			hotelIDs[h.ID] = i
		}
		if h.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if h.PMSBaseURL != "" && !strings.HasPrefix(h.PMSBaseURL, "http") {
			errs = append(errs, fmt.Errorf("%s.pms_base_url %q is not an http(s) URL", prefix, h.PMSBaseURL))
		}
		if h.PMSBaseURL != "" && h.PMSPropertyID == "" {
			errs = append(errs, fmt.Errorf("%s.pms_property_id is required when pms_base_url is set", prefix))
		}
	}
	if len(cfg.Hotels) == 0 {
		slog.Warn("no hotels configured; agent_ready events will fall back to the generic greeting")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
