// Package elevenlabs provides a TTS provider backed by the ElevenLabs REST
// API. It synthesises one utterance per request; the streaming websocket API
// is not used because replies are short and sent to the media plane whole.
//
// Typical usage:
//
//	p, err := elevenlabs.New(apiKey,
//	    elevenlabs.WithVoice("EXAVITQu4vr4xnSDxMaL"),
//	)
//	res, err := p.Synthesize(ctx, tts.SynthesisRequest{Text: "Welcome!", Language: "en"})
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voicehive/voicehive/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_flash_v2_5"
	defaultFormat  = "mp3_44100_128"
	defaultVoice   = "21m00Tcm4TlvDq8ikWAM"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API origin. Intended for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = u
	}
}

// WithModel sets the model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithVoice sets the voice used when the request leaves VoiceID empty.
func WithVoice(voiceID string) Option {
	return func(p *Provider) {
		p.voice = voiceID
	}
}

// WithOutputFormat sets the output format query parameter (e.g.,
// "mp3_44100_128", "pcm_16000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.format = format
	}
}

// WithHTTPClient replaces the HTTP client. Use this to share one pooled
// client across providers.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider talks to the ElevenLabs REST API.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	voice      string
	format     string
	httpClient *http.Client
}

// New creates an ElevenLabs provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: api key must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		voice:      defaultVoice,
		format:     defaultFormat,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesizeBody is the POST /v1/text-to-speech/{voice} request payload.
type synthesizeBody struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	LanguageCode  string         `json:"language_code,omitempty"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// Synthesize implements tts.Provider. The response body is the raw encoded
// audio; ElevenLabs reports no duration, so DurationMS stays zero.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if req.Text == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}
	voice := req.VoiceID
	if voice == "" {
		voice = p.voice
	}

	body := synthesizeBody{
		Text:         req.Text,
		ModelID:      p.model,
		LanguageCode: req.Language,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           req.Speed,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		p.baseURL, url.PathEscape(voice), url.QueryEscape(p.format))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.apiKey)

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &tts.HTTPError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}

	return &tts.SynthesisResult{
		AudioData:        audio,
		EngineUsed:       "elevenlabs",
		VoiceUsed:        voice,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// voicesResponse is the GET /v1/voices response shape.
type voicesResponse struct {
	Voices []apiVoice `json:"voices"`
}

type apiVoice struct {
	VoiceID string            `json:"voice_id"`
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels"`
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &tts.HTTPError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var out voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("elevenlabs: decode voices: %w", err)
	}

	voices := make([]tts.Voice, 0, len(out.Voices))
	for _, v := range out.Voices {
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Language: v.Labels["language"],
			Gender:   v.Labels["gender"],
			Engine:   "elevenlabs",
		})
	}
	return voices, nil
}

// Health implements tts.Provider by probing the voices endpoint, which
// exercises both reachability and the API key.
func (p *Provider) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("elevenlabs: health: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &tts.HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}
