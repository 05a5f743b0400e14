// Package tts implements text-to-speech against the ElevenLabs websocket
// streaming API. The stream is collected into a single WAV payload.
package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/utils/audio"
)

const pcmSampleRate = 24000

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service.
type ElevenLabsTTSConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabsTTS generates speech through ElevenLabs' streaming websocket and
// returns it as one WAV buffer. It implements core.TTSService.
type ElevenLabsTTS struct {
	config ElevenLabsTTSConfig
	logger *core.Logger
	dialer *websocket.Dialer
}

// Client messages
type (
	// BOS (Beginning of Stream) - sent once on connect
	elBOSMessage struct {
		Text          string          `json:"text"`
		VoiceSettings elVoiceSettings `json:"voice_settings"`
	}

	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
		Speed           float64 `json:"speed,omitempty"`
	}

	// Text chunk message; an empty Text is the EOS marker.
	elTextMessage struct {
		Text                 string `json:"text"`
		TryTriggerGeneration bool   `json:"try_trigger_generation,omitempty"`
	}
)

// Server messages
type (
	elAudioMessage struct {
		Audio   string `json:"audio"`
		IsFinal bool   `json:"isFinal"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config
func NewElevenLabsTTS(config ElevenLabsTTSConfig, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.VoiceID == "" {
		config.VoiceID = "21m00Tcm4TlvDq8ikWAM" // Default: Rachel
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_turbo_v2_5"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config: config,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Generate synthesizes text and returns a complete WAV payload. The websocket
// is opened per call and closed when the provider signals the final chunk.
func (e *ElevenLabsTTS) Generate(ctx context.Context, text string, opts core.TTSOptions) ([]byte, error) {
	if e.config.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: API key is required")
	}

	voiceID := e.config.VoiceID
	if opts.VoiceID != "" {
		voiceID = opts.VoiceID
	}

	wsURL := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=pcm_%d",
		e.config.BaseURL, url.PathEscape(voiceID), url.QueryEscape(e.config.ModelID), pcmSampleRate)

	header := http.Header{}
	header.Set("xi-api-key", e.config.APIKey)

	conn, _, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	bos := elBOSMessage{
		Text: " ",
		VoiceSettings: elVoiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
			Speed:           opts.Speed,
		},
	}
	if err := writeJSON(conn, bos); err != nil {
		return nil, fmt.Errorf("elevenlabs: send BOS: %w", err)
	}
	if err := writeJSON(conn, elTextMessage{Text: text + " ", TryTriggerGeneration: true}); err != nil {
		return nil, fmt.Errorf("elevenlabs: send text: %w", err)
	}
	// EOS: empty text tells the server to flush and finish.
	if err := writeJSON(conn, elTextMessage{Text: ""}); err != nil {
		return nil, fmt.Errorf("elevenlabs: send EOS: %w", err)
	}

	var pcm []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(pcm) > 0 {
				break
			}
			return nil, fmt.Errorf("elevenlabs: read: %w", err)
		}

		var msg elAudioMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("elevenlabs: decode message: %w", err)
		}
		if msg.Error != "" {
			return nil, fmt.Errorf("elevenlabs: server error: %s (%s)", msg.Error, msg.Message)
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: decode audio chunk: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
		if msg.IsFinal {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("elevenlabs: stream produced no audio")
	}

	e.logger.With(map[string]any{"voice_id": voiceID, "pcm_bytes": len(pcm)}).Debug("elevenlabs stream finished")

	wav, err := audio.PCMToWAV(pcm, 1, pcmSampleRate)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: wrap pcm: %w", err)
	}
	return wav, nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
