package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mindsphere/mindsphere/internal/plan"
)

func TestGoogleSynthesizeMarkup(t *testing.T) {
	var got synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q, want test-key", r.URL.Query().Get("key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer srv.Close()

	s := NewGoogleSynthesizer(GoogleConfig{APIKey: "test-key", Endpoint: srv.URL})
	audio, err := s.Synthesize(context.Background(), SynthesisInput{
		Text: `<speak><prosody rate="x-slow"><p><s>Rest now.</s></p></prosody></speak>`,
		Kind: plan.KindSleepStory,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q, want decoded payload", audio)
	}
	if got.Input.SSML == "" || got.Input.Text != "" {
		t.Fatalf("markup input should be sent in the ssml field: %+v", got.Input)
	}
	if got.Voice.Name != "en-US-Studio-O" || got.Voice.LanguageCode != "en-US" {
		t.Fatalf("voice = %+v", got.Voice)
	}
	if got.AudioConfig.AudioEncoding != "MP3" || got.AudioConfig.SpeakingRate != 1.0 {
		t.Fatalf("audio config = %+v", got.AudioConfig)
	}
	if len(got.AudioConfig.EffectsProfileID) != 1 || got.AudioConfig.EffectsProfileID[0] != "telephony-class-application" {
		t.Fatalf("sleep story effects profile = %v", got.AudioConfig.EffectsProfileID)
	}
}

func TestGoogleSynthesizePlainText(t *testing.T) {
	var got synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("x")),
		})
	}))
	defer srv.Close()

	s := NewGoogleSynthesizer(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
	if _, err := s.Synthesize(context.Background(), SynthesisInput{Text: "just words", Kind: plan.KindMeditation}); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got.Input.Text != "just words" || got.Input.SSML != "" {
		t.Fatalf("plain input should be sent in the text field: %+v", got.Input)
	}
	if len(got.AudioConfig.EffectsProfileID) != 1 || got.AudioConfig.EffectsProfileID[0] != "headphone-class-device" {
		t.Fatalf("meditation effects profile = %v", got.AudioConfig.EffectsProfileID)
	}
}

func TestGoogleSynthesizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewGoogleSynthesizer(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
	_, err := s.Synthesize(context.Background(), SynthesisInput{Text: "hello", Kind: plan.KindMeditation})

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Synthesize() error = %v, want ProviderError", err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests || !provErr.Retryable {
		t.Fatalf("ProviderError = %+v", provErr)
	}
}

func TestGoogleSynthesizeEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(synthesizeResponse{})
	}))
	defer srv.Close()

	s := NewGoogleSynthesizer(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
	if _, err := s.Synthesize(context.Background(), SynthesisInput{Text: "hello", Kind: plan.KindMeditation}); err == nil {
		t.Fatalf("expected error for empty audio content")
	}
}
