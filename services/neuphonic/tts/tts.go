// Package tts implements text-to-speech against the Neuphonic SSE API.
package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/utils/audio"
)

const pcmSampleRate = 22050

// NeuphonicTTSConfig holds configuration for the Neuphonic TTS service.
type NeuphonicTTSConfig struct {
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	LangCode string `json:"lang_code"`
	// Timeout bounds each generation call. Zero means 30s.
	Timeout time.Duration `json:"-"`
}

// NeuphonicTTS streams speech over Neuphonic's server-sent-events endpoint
// and collects the chunks into one WAV buffer. It implements core.TTSService.
type NeuphonicTTS struct {
	config NeuphonicTTSConfig
	logger *core.Logger
	client *http.Client
}

type neuphonicRequest struct {
	Text  string  `json:"text"`
	Speed float64 `json:"speed"`
}

// sseEvent is one "data:" payload from the Neuphonic stream.
type sseEvent struct {
	Data struct {
		Audio string `json:"audio"`
	} `json:"data"`
	Errors []string `json:"errors"`
}

// NewNeuphonicTTS creates a new Neuphonic TTS service with the provided config.
func NewNeuphonicTTS(config NeuphonicTTSConfig, logger *core.Logger) *NeuphonicTTS {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.neuphonic.com"
	}
	if config.LangCode == "" {
		config.LangCode = "en"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &NeuphonicTTS{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Generate synthesizes text and returns a complete WAV payload.
func (n *NeuphonicTTS) Generate(ctx context.Context, text string, opts core.TTSOptions) ([]byte, error) {
	if n.config.APIKey == "" {
		return nil, fmt.Errorf("neuphonic: API key is required")
	}

	speed := opts.Speed
	if speed == 0 {
		speed = 1.0
	}

	body, err := sonic.Marshal(neuphonicRequest{Text: text, Speed: speed})
	if err != nil {
		return nil, fmt.Errorf("neuphonic: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/sse/speak/%s", n.config.BaseURL, n.config.LangCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("neuphonic: %w", err)
	}
	req.Header.Set("X-API-KEY", n.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neuphonic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("neuphonic: API error: %d - %s", resp.StatusCode, detail)
	}

	pcm, err := collectSSEAudio(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("neuphonic: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("neuphonic: stream produced no audio")
	}

	wav, err := audio.PCMToWAV(pcm, 1, pcmSampleRate)
	if err != nil {
		return nil, fmt.Errorf("neuphonic: wrap pcm: %w", err)
	}
	return wav, nil
}

// collectSSEAudio reads "data: {...}" lines from an event stream and
// concatenates the base64 audio chunks they carry.
func collectSSEAudio(r io.Reader) ([]byte, error) {
	var pcm []byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var event sseEvent
		if err := sonic.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if len(event.Errors) > 0 {
			return nil, fmt.Errorf("server error: %s", strings.Join(event.Errors, "; "))
		}
		if event.Data.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(event.Data.Audio)
			if err != nil {
				return nil, fmt.Errorf("decode audio chunk: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return pcm, nil
}
