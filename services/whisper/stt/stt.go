// Package stt implements speech-to-text against a Whisper-compatible
// transcription server (OpenAI audio API shape).
package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/nori-cloud/story/core"
)

// WhisperConfig holds configuration for the Whisper STT service.
type WhisperConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	// Timeout bounds each transcription call. Zero means 60s; transcription
	// of longer clips is slower than TTS.
	Timeout time.Duration `json:"-"`
}

// WhisperSTT posts audio to {base}/v1/audio/transcriptions. It implements
// core.STTService.
type WhisperSTT struct {
	config WhisperConfig
	logger *core.Logger
	client *http.Client
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// NewWhisperSTT creates a new Whisper STT service with the provided config.
func NewWhisperSTT(config WhisperConfig, logger *core.Logger) *WhisperSTT {
	if config.BaseURL == "" {
		config.BaseURL = "http://whisper:8000"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &WhisperSTT{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Transcribe sends the audio as a multipart upload and returns the
// transcription text plus the detected language when reported.
func (w *WhisperSTT) Transcribe(ctx context.Context, audio []byte, opts core.STTOptions) (core.STTResult, error) {
	if len(audio) == 0 {
		return core.STTResult{}, fmt.Errorf("whisper: audio is empty")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: build form: %w", err)
	}
	if opts.Language != "" {
		writer.WriteField("language", opts.Language)
	}
	model := opts.Model
	if model == "" {
		model = w.config.Model
	}
	if model != "" {
		writer.WriteField("model", model)
	}
	if err := writer.Close(); err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.BaseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.STTResult{}, fmt.Errorf("whisper: API error: %d - %s", resp.StatusCode, detail)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: read response: %w", err)
	}

	var parsed whisperResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return core.STTResult{}, fmt.Errorf("whisper: decode response: %w", err)
	}

	w.logger.With(map[string]any{
		"audio_bytes": len(audio),
		"text_length": len(parsed.Text),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("transcription finished")

	return core.STTResult{Text: parsed.Text, Language: parsed.Language}, nil
}
