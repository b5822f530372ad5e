// Package config provides the configuration schema, loader, provider
// registry and file watcher for the VoiceHive orchestrator.
package config

import "time"

// LogLevel controls log verbosity for the orchestrator.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for VoiceHive.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Media      MediaConfig      `yaml:"media"`
	Auth       AuthConfig       `yaml:"auth"`
	Redis      RedisConfig      `yaml:"redis"`
	Hotels     []HotelConfig    `yaml:"hotels"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	HTTPPool   HTTPPoolConfig   `yaml:"http_pool"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP ingress listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// external dependency. Name fields select a constructor registered in the
// [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`

	// LLMFallbacks are additional LLM backends tried in order when the
	// primary fails or its circuit breaker is open.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`

	// TTSFallbacks are additional TTS backends, same semantics.
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`

	// ASRURL is the external speech-recognition callback origin. ASR runs
	// out of process and pushes transcriptions over HTTP, so only the URL
	// is recorded here (health checks, logs).
	ASRURL string `yaml:"asr_url"`
}

// ProviderEntry is the common configuration block shared by provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "router").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. For Azure
	// OpenAI this is the deployment endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini",
	// or an Azure deployment name).
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// MediaConfig describes the media-plane link.
type MediaConfig struct {
	// WSURL is the media-plane websocket endpoint the orchestrator dials.
	// Empty disables the outbound media client (webhook-only ingestion).
	WSURL string `yaml:"ws_url"`

	// PublicWSURL is the websocket base URL handed to callers in the
	// call-start response. Defaults to WSURL when empty.
	PublicWSURL string `yaml:"public_ws_url"`

	// Token is the shared bearer secret for the media websocket and the
	// media-plane webhook endpoints.
	Token string `yaml:"token"`
}

// AuthConfig holds the ingress secrets.
type AuthConfig struct {
	// ApaleoSecret is the HMAC-SHA256 key verifying PMS webhook signatures.
	ApaleoSecret string `yaml:"apaleo_secret"`

	// ApaleoAllowedIPs restricts the PMS webhook to these source addresses.
	// Empty disables the allowlist.
	ApaleoAllowedIPs []string `yaml:"apaleo_allowed_ips"`

	// JWTSecret verifies call-start tokens (HS256).
	JWTSecret string `yaml:"jwt_secret"`
}

// RedisConfig holds the snapshot store connection.
type RedisConfig struct {
	// URL is a redis connection URL (redis://host:port/db). Empty falls
	// back to the in-memory store; snapshots then do not survive restarts.
	URL string `yaml:"url"`
}

// HotelConfig describes one hotel served by this deployment.
type HotelConfig struct {
	// ID is the stable hotel identifier carried in events and PMS calls.
	ID string `yaml:"id"`

	// Name is the display name spoken in greetings.
	Name string `yaml:"name"`

	// DefaultLanguage is the BCP-47 code used before the caller's language
	// is detected. Defaults to "en".
	DefaultLanguage string `yaml:"default_language"`

	// PMSBaseURL is the Apaleo API endpoint for this hotel.
	PMSBaseURL string `yaml:"pms_base_url"`

	// PMSPropertyID is the Apaleo property identifier.
	PMSPropertyID string `yaml:"pms_property_id"`

	// PMSAPIKey authenticates PMS calls for this hotel.
	PMSAPIKey string `yaml:"pms_api_key"`
}

// ComplianceConfig holds the data-residency and retention settings.
type ComplianceConfig struct {
	// Region tags call metadata and call-start responses (e.g., "eu-central").
	Region string `yaml:"region"`

	// RetentionDays bounds how long call metadata is kept. Default 30.
	RetentionDays int `yaml:"retention_days"`

	// EncryptionKeyID identifies the media encryption key advertised to
	// callers.
	EncryptionKeyID string `yaml:"encryption_key_id"`
}

// TimeoutConfig bounds each pipeline phase. Zero values take the defaults
// listed on each field.
type TimeoutConfig struct {
	// Intent bounds intent detection. Default 250 ms.
	Intent time.Duration `yaml:"intent"`

	// Flow bounds a flow decision. Default 50 ms.
	Flow time.Duration `yaml:"flow"`

	// LLMRound bounds one LLM round trip. Default 10 s.
	LLMRound time.Duration `yaml:"llm_round"`

	// ToolLoop bounds the whole completion-with-tools loop. Default 20 s.
	ToolLoop time.Duration `yaml:"tool_loop"`

	// TTSAttempt bounds one synthesis attempt. Default 30 s.
	TTSAttempt time.Duration `yaml:"tts_attempt"`

	// PMS bounds one PMS connector call. Default 30 s.
	PMS time.Duration `yaml:"pms"`

	// Persist bounds one snapshot write. Default 2 s.
	Persist time.Duration `yaml:"persist"`

	// SnapshotTTL is the sliding session snapshot lifetime. Default 1 h.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

func (t TimeoutConfig) withDefaults() TimeoutConfig {
	def := func(d *time.Duration, fallback time.Duration) {
		if *d <= 0 {
			*d = fallback
		}
	}
	def(&t.Intent, 250*time.Millisecond)
	def(&t.Flow, 50*time.Millisecond)
	def(&t.LLMRound, 10*time.Second)
	def(&t.ToolLoop, 20*time.Second)
	def(&t.TTSAttempt, 30*time.Second)
	def(&t.PMS, 30*time.Second)
	def(&t.Persist, 2*time.Second)
	def(&t.SnapshotTTL, time.Hour)
	return t
}

// HTTPPoolConfig sizes the shared outbound HTTP client.
type HTTPPoolConfig struct {
	// MaxIdleConnsPerHost is the keepalive pool size per host. Default 20.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// MaxConnsPerHost caps concurrent connections per host. Default 100.
	MaxConnsPerHost int `yaml:"max_conns_per_host"`
}

func (p HTTPPoolConfig) withDefaults() HTTPPoolConfig {
	if p.MaxIdleConnsPerHost <= 0 {
		p.MaxIdleConnsPerHost = 20
	}
	if p.MaxConnsPerHost <= 0 {
		p.MaxConnsPerHost = 100
	}
	return p
}
