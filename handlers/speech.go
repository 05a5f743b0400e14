package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/speech"
	"github.com/nori-cloud/story/utils/audio"
)

const maxAudioUploadBytes = 25 << 20 // 25 MiB

// speechEnvelope is the JSON error/result shape of the speech routes.
type speechEnvelope struct {
	OK       bool   `json:"ok"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
	// Speed arrives as either a JSON number or a numeric string; clients
	// send both.
	Speed json.RawMessage `json:"speed,omitempty"`
}

// parseSpeed interprets the speed field. Returns ok=false when the field is
// absent, null, or the empty string.
func parseSpeed(raw json.RawMessage) (float64, bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		return 0, false, nil
	}
	trimmed = strings.Trim(trimmed, `"`)
	speed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false, fmt.Errorf("speed must be a number")
	}
	return speed, true, nil
}

// STTHandler serves POST /api/stt: multipart audio in, transcription out.
type STTHandler struct {
	speech *speech.Speech
	logger *core.Logger
}

// NewSTTHandler creates the handler for POST /api/stt.
func NewSTTHandler(sp *speech.Speech, logger *core.Logger) *STTHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &STTHandler{speech: sp, logger: logger.With(map[string]any{"component": "stt-api"})}
}

func (h *STTHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger.With(map[string]any{"request_id": newRequestID()})

	if r.Method != http.MethodPost {
		writeSpeechError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeSpeechError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		logger.Warn("rejected: no audio file provided")
		writeSpeechError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	// Telephony uploads arrive as raw u-law; decode to WAV before handing
	// them to the provider.
	if strings.HasPrefix(header.Header.Get("Content-Type"), "audio/basic") && !audio.IsWAV(audioData) {
		audioData, err = audio.ULawToWAV(audioData)
		if err != nil {
			writeSpeechError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode u-law audio: %v", err))
			return
		}
	}

	opts := core.STTOptions{
		Language: r.FormValue("language"),
		Model:    r.FormValue("model"),
	}

	logger.With(map[string]any{
		"file":     header.Filename,
		"size_kb":  fmt.Sprintf("%.2f", float64(len(audioData))/1024),
		"language": orDefault(opts.Language, "(auto-detect)"),
		"model":    orDefault(opts.Model, "(default)"),
	}).Info("transcription request")

	result, err := h.speech.SpeechToText(r.Context(), audioData, opts)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("transcription failed")
		writeSpeechError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.With(map[string]any{
		"text_length": len(result.Text),
		"language":    orDefault(result.Language, "(not provided)"),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("transcription finished")

	writeJSON(w, http.StatusOK, speechEnvelope{OK: true, Text: result.Text, Language: result.Language})
}

// TTSHandler serves POST /api/tts: JSON text in, WAV audio out.
type TTSHandler struct {
	speech *speech.Speech
	logger *core.Logger
}

// NewTTSHandler creates the handler for POST /api/tts.
func NewTTSHandler(sp *speech.Speech, logger *core.Logger) *TTSHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &TTSHandler{speech: sp, logger: logger.With(map[string]any{"component": "tts-api"})}
}

func (h *TTSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger.With(map[string]any{"request_id": newRequestID()})

	if r.Method != http.MethodPost {
		writeSpeechError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req ttsRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeSpeechError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		logger.Warn("rejected: no text provided")
		writeSpeechError(w, http.StatusBadRequest, "Text is required")
		return
	}

	opts := core.TTSOptions{VoiceID: req.VoiceID}
	speed, speedSet, err := parseSpeed(req.Speed)
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, err.Error())
		return
	}
	if speedSet {
		opts.Speed = speed
	}

	speedLabel := "(default)"
	if speedSet {
		speedLabel = strconv.FormatFloat(speed, 'g', -1, 64)
	}
	logger.With(map[string]any{
		"text_length": len(req.Text),
		"voice_id":    orDefault(req.VoiceID, "(default)"),
		"speed":       speedLabel,
	}).Info("speech generation request")

	result, err := h.speech.TextToSpeech(r.Context(), req.Text, opts)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("speech generation failed")
		writeSpeechError(w, http.StatusInternalServerError, "Failed to generate speech")
		return
	}

	logger.With(map[string]any{
		"audio_kb":    fmt.Sprintf("%.2f", float64(len(result.Audio))/1024),
		"enhanced":    result.EnhancedText != "",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("speech generation finished")

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Audio)
}

func writeSpeechError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, speechEnvelope{OK: false, Error: msg})
}

func newRequestID() string {
	return "req_" + uuid.NewString()[:8]
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
