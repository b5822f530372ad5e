// Package router provides a TTS provider backed by the VoiceHive TTS router
// service. The router fronts several synthesis engines and picks one per
// request; this client only speaks its REST API.
//
// Endpoints: POST /synthesize (JSON in, JSON with base64 audio out),
// GET /voices, GET /health.
//
// Typical usage:
//
//	p := router.New("http://tts-router:8001",
//	    router.WithTimeout(30*time.Second),
//	)
//	res, err := p.Synthesize(ctx, tts.SynthesisRequest{Text: "Welcome!", Language: "en"})
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicehive/voicehive/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 30 * time.Second

	synthesizeEndpoint = "/synthesize"
	voicesEndpoint     = "/voices"
	healthEndpoint     = "/health"
)

// Option is a functional option for configuring a router Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client. Use this to share one pooled
// client across providers.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithDefaultFormat sets the audio format requested when the caller leaves
// SynthesisRequest.Format empty. Defaults to "mp3".
func WithDefaultFormat(format string) Option {
	return func(p *Provider) {
		p.defaultFormat = format
	}
}

// Provider talks to the TTS router REST API.
type Provider struct {
	baseURL       string
	httpClient    *http.Client
	defaultFormat string
}

// New creates a router-backed TTS provider.
func New(baseURL string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		defaultFormat: "mp3",
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// synthesizeResponse is the router's wire shape. AudioData is base64 on the
// wire; encoding/json decodes it into the byte slice.
type synthesizeResponse struct {
	AudioData        []byte `json:"audio_data"`
	DurationMS       int64  `json:"duration_ms"`
	EngineUsed       string `json:"engine_used"`
	VoiceUsed        string `json:"voice_used"`
	Cached           bool   `json:"cached"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("router: text must not be empty")
	}
	if req.Format == "" {
		req.Format = p.defaultFormat
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("router: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+synthesizeEndpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("router: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("router: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &tts.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("router: decode response: %w", err)
	}

	return &tts.SynthesisResult{
		AudioData:        out.AudioData,
		DurationMS:       out.DurationMS,
		EngineUsed:       out.EngineUsed,
		VoiceUsed:        out.VoiceUsed,
		Cached:           out.Cached,
		ProcessingTimeMS: out.ProcessingTimeMS,
	}, nil
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("router: build request: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("router: list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &tts.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		Voices []tts.Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("router: decode voices: %w", err)
	}
	return out.Voices, nil
}

// Health implements tts.Provider.
func (p *Provider) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("router: build request: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("router: health: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &tts.HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}
