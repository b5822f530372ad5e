package tts

// SynthesisRequest carries one utterance to synthesize.
type SynthesisRequest struct {
	// Text is the utterance to speak.
	Text string `json:"text"`

	// Language is a short or regional language code ("de", "en-US").
	Language string `json:"language"`

	// VoiceID selects a specific voice; empty lets the backend choose.
	VoiceID string `json:"voice_id,omitempty"`

	// Speed adjusts the speaking rate (1.0 = default). Zero means default.
	Speed float64 `json:"speed,omitempty"`

	// Emotion is an optional style hint ("friendly", "apologetic").
	Emotion string `json:"emotion,omitempty"`

	// Format is the audio container ("mp3", "wav", "pcm").
	Format string `json:"format,omitempty"`

	// SampleRate is the output sample rate in Hz. Zero means default.
	SampleRate int `json:"sample_rate,omitempty"`
}

// SynthesisResult is the synthesized audio plus engine metadata.
type SynthesisResult struct {
	// AudioData is the encoded audio. JSON-marshals as base64.
	AudioData []byte `json:"audio_data"`

	// DurationMS is the audio duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// EngineUsed names the synthesis engine the backend picked.
	EngineUsed string `json:"engine_used"`

	// VoiceUsed names the voice the backend picked.
	VoiceUsed string `json:"voice_used"`

	// Cached reports whether the backend served the audio from cache.
	Cached bool `json:"cached"`

	// ProcessingTimeMS is the backend-side synthesis time.
	ProcessingTimeMS int64 `json:"processing_time_ms"`
}

// Voice describes one available voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
	Engine   string `json:"engine,omitempty"`
}
