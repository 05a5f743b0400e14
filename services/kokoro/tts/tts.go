// Package tts implements text-to-speech against a self-hosted Kokoro server.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/nori-cloud/story/core"
)

// KokoroTTSConfig holds configuration for the Kokoro TTS service.
type KokoroTTSConfig struct {
	BaseURL string `json:"base_url"`
	Voice   string `json:"voice"`
	// Timeout bounds each generation call. Zero means 30s.
	Timeout time.Duration `json:"-"`
}

// KokoroTTS calls a Kokoro server's /generate endpoint. It implements
// core.TTSService.
type KokoroTTS struct {
	config KokoroTTSConfig
	logger *core.Logger
	client *http.Client
}

type kokoroRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// NewKokoroTTS creates a new Kokoro TTS service with the provided config.
func NewKokoroTTS(config KokoroTTSConfig, logger *core.Logger) *KokoroTTS {
	if config.BaseURL == "" {
		config.BaseURL = "http://kokoro:8880"
	}
	if config.Voice == "" {
		config.Voice = "af_sky"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &KokoroTTS{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Generate synthesizes text and returns the WAV payload produced by the
// Kokoro server.
func (k *KokoroTTS) Generate(ctx context.Context, text string, opts core.TTSOptions) ([]byte, error) {
	voice := k.config.Voice
	if opts.VoiceID != "" {
		voice = opts.VoiceID
	}
	speed := opts.Speed
	if speed == 0 {
		speed = 1.0
	}

	body, err := sonic.Marshal(kokoroRequest{Text: text, Voice: voice, Speed: speed})
	if err != nil {
		return nil, fmt.Errorf("kokoro: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.config.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kokoro: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kokoro: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kokoro: API error: %d - %s", resp.StatusCode, detail)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kokoro: read audio: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("kokoro: empty audio response")
	}
	return wav, nil
}
