package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/factories"
)

func newInternalFixture(settings factories.SettingsConfig) *http.ServeMux {
	mux := http.NewServeMux()
	NewInternalSpeechHandler(settings, factories.APIKeys{}, core.GetLogger()).Register(mux)
	return mux
}

func TestInternalProvidersListing(t *testing.T) {
	settings := factories.DefaultSettingsConfig()
	mux := newInternalFixture(settings)

	req := httptest.NewRequest(http.MethodGet, "/internal/api/speech/providers", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp providersResponse
	decodeBody(t, rec, &resp)
	if resp.TTS != "kokoro" || resp.STT != "whisper" || !resp.EnhanceText {
		t.Errorf("response = %+v", resp)
	}
}

func TestInternalTTSWithExplicitProvider(t *testing.T) {
	wav := []byte("RIFF....WAVEfake")
	kokoro := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			http.NotFound(w, r)
			return
		}
		w.Write(wav)
	}))
	defer kokoro.Close()

	mux := newInternalFixture(factories.DefaultSettingsConfig())

	body := fmt.Sprintf(`{"provider":{"kokoro":{"base_url":%q}},"text":"hello"}`, kokoro.URL)
	req := httptest.NewRequest(http.MethodPost, "/internal/api/speech/tts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != string(wav) {
		t.Errorf("body = %q, want upstream audio", rec.Body.String())
	}
}

func TestInternalTTSRequiresText(t *testing.T) {
	mux := newInternalFixture(factories.DefaultSettingsConfig())

	req := httptest.NewRequest(http.MethodPost, "/internal/api/speech/tts", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestInternalSTTWithExplicitProvider(t *testing.T) {
	whisper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"transcribed","language":"en"}`)
	}))
	defer whisper.Close()

	mux := newInternalFixture(factories.DefaultSettingsConfig())

	body, contentType := multipartAudio(t, []byte("audio-bytes"), "audio/wav", map[string]string{
		"provider": fmt.Sprintf(`{"whisper":{"base_url":%q}}`, whisper.URL),
	})
	req := httptest.NewRequest(http.MethodPost, "/internal/api/speech/stt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp speechEnvelope
	decodeBody(t, rec, &resp)
	if !resp.OK || resp.Text != "transcribed" {
		t.Errorf("response = %+v", resp)
	}
}

func TestInternalRejectsEmptyProviderConfig(t *testing.T) {
	settings := factories.DefaultSettingsConfig()
	settings.TTS = factories.TTSFactoryConfig{}
	mux := newInternalFixture(settings)

	req := httptest.NewRequest(http.MethodPost, "/internal/api/speech/tts", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
