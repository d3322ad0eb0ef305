package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mindsphere/mindsphere/internal/plan"
	"github.com/mindsphere/mindsphere/internal/reliability"
)

// GoogleConfig holds the settings for the Google Cloud TTS REST API.
type GoogleConfig struct {
	APIKey   string
	Endpoint string
	Voice    string
	Language string
	Timeout  time.Duration
}

// GoogleSynthesizer calls the text:synthesize REST endpoint. One call
// per document; the caller keeps documents under the request ceiling.
type GoogleSynthesizer struct {
	cfg        GoogleConfig
	httpClient *http.Client
}

func NewGoogleSynthesizer(cfg GoogleConfig) *GoogleSynthesizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"
	}
	if cfg.Voice == "" {
		cfg.Voice = "en-US-Studio-O"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &GoogleSynthesizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type synthesizeInput struct {
	SSML string `json:"ssml,omitempty"`
	Text string `json:"text,omitempty"`
}

type synthesizeVoice struct {
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode"`
}

type synthesizeAudioConfig struct {
	AudioEncoding    string   `json:"audioEncoding"`
	SpeakingRate     float64  `json:"speakingRate"`
	VolumeGainDb     float64  `json:"volumeGainDb"`
	EffectsProfileID []string `json:"effectsProfileId"`
}

type synthesizeRequest struct {
	Input       synthesizeInput       `json:"input"`
	Voice       synthesizeVoice       `json:"voice"`
	AudioConfig synthesizeAudioConfig `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts one document into MP3 bytes. Markup input is
// detected by the <speak> root; anything else is sent as plain text.
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, input SynthesisInput) ([]byte, error) {
	body := synthesizeRequest{
		Voice: synthesizeVoice{Name: s.cfg.Voice, LanguageCode: s.cfg.Language},
		AudioConfig: synthesizeAudioConfig{
			AudioEncoding:    "MP3",
			SpeakingRate:     1.0,
			VolumeGainDb:     0.0,
			EffectsProfileID: []string{effectsProfile(input.Kind)},
		},
	}
	if strings.HasPrefix(strings.TrimSpace(input.Text), "<speak>") {
		body.Input.SSML = input.Text
	} else {
		body.Input.Text = input.Text
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding synthesis request: %w", err)
	}

	url := s.cfg.Endpoint + "?key=" + s.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling synthesis service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("reading synthesis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   "google-tts",
			StatusCode: resp.StatusCode,
			Message:    truncate(string(raw), 256),
			Retryable:  reliability.IsRetryableHTTPStatus(resp.StatusCode),
		}
	}

	var parsed synthesizeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding synthesis response: %w", err)
	}
	if parsed.AudioContent == "" {
		return nil, fmt.Errorf("synthesis response has no audio content")
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decoding audio content: %w", err)
	}
	return audio, nil
}

// effectsProfile picks the device profile the voice is tuned against.
func effectsProfile(kind plan.Kind) string {
	if kind == plan.KindSleepStory {
		return "telephony-class-application"
	}
	return "headphone-class-device"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
