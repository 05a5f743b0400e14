package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/factories"
)

// InternalSpeechHandler serves the /internal/api/speech debug namespace:
// provider discovery plus one-off TTS/STT calls against an explicitly chosen
// provider config. Registered only outside production.
type InternalSpeechHandler struct {
	settings factories.SettingsConfig
	keys     factories.APIKeys
	logger   *core.Logger
}

// NewInternalSpeechHandler creates the debug handler. The settings drive
// provider discovery; the keys credential per-request provider configs so
// debug calls never carry secrets in the request body.
func NewInternalSpeechHandler(settings factories.SettingsConfig, keys factories.APIKeys, logger *core.Logger) *InternalSpeechHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &InternalSpeechHandler{
		settings: settings,
		keys:     keys,
		logger:   logger.With(map[string]any{"component": "internal-api"}),
	}
}

// router is the route-registration surface Register needs; both *Server and
// *http.ServeMux satisfy it.
type router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// Register mounts the debug routes.
func (h *InternalSpeechHandler) Register(r router) {
	r.HandleFunc("/internal/api/speech/providers", h.providers)
	r.HandleFunc("/internal/api/speech/tts", h.tts)
	r.HandleFunc("/internal/api/speech/stt", h.stt)
}

type providersResponse struct {
	TTS         string `json:"tts"`
	STT         string `json:"stt"`
	EnhanceText bool   `json:"enhanceText"`
}

func (h *InternalSpeechHandler) providers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeSpeechError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, providersResponse{
		TTS:         string(h.settings.TTS.Kind()),
		STT:         string(h.settings.STT.Kind()),
		EnhanceText: h.settings.EnhanceTextEnabled(),
	})
}

type internalTTSRequest struct {
	// Provider is a one-of factory config naming the provider to exercise.
	// When absent the configured provider is used.
	Provider *factories.TTSFactoryConfig `json:"provider,omitempty"`
	Text     string                      `json:"text"`
	VoiceID  string                      `json:"voiceId,omitempty"`
	Speed    float64                     `json:"speed,omitempty"`
}

func (h *InternalSpeechHandler) tts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeSpeechError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	var req internalTTSRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeSpeechError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeSpeechError(w, http.StatusBadRequest, "Text is required")
		return
	}

	ttsConfig := h.settings.TTS
	if req.Provider != nil {
		ttsConfig = *req.Provider
	}
	h.injectKeys(&ttsConfig, nil)
	svc, err := factories.BuildTTSService(ttsConfig, h.logger)
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.With(map[string]any{
		"provider":    string(ttsConfig.Kind()),
		"text_length": len(req.Text),
	}).Info("internal speech generation")

	audio, err := svc.Generate(r.Context(), req.Text, core.TTSOptions{VoiceID: req.VoiceID, Speed: req.Speed})
	if err != nil {
		writeSpeechError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func (h *InternalSpeechHandler) stt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeSpeechError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeSpeechError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()
	audioData, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	sttConfig := h.settings.STT
	if raw := r.FormValue("provider"); raw != "" {
		var override factories.STTFactoryConfig
		if err := sonic.Unmarshal([]byte(raw), &override); err != nil {
			writeSpeechError(w, http.StatusBadRequest, "invalid provider config")
			return
		}
		sttConfig = override
	}
	h.injectKeys(nil, &sttConfig)
	svc, err := factories.BuildSTTService(sttConfig, h.logger)
	if err != nil {
		writeSpeechError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.With(map[string]any{
		"provider": string(sttConfig.Kind()),
		"size_kb":  len(audioData) / 1024,
	}).Info("internal transcription")

	result, err := svc.Transcribe(r.Context(), audioData, core.STTOptions{
		Language: r.FormValue("language"),
		Model:    r.FormValue("model"),
	})
	if err != nil {
		writeSpeechError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, speechEnvelope{OK: true, Text: result.Text, Language: result.Language})
}

// injectKeys fills environment credentials into a per-request provider
// config. Keys already present in the config win.
func (h *InternalSpeechHandler) injectKeys(tts *factories.TTSFactoryConfig, stt *factories.STTFactoryConfig) {
	if tts != nil {
		if tts.ElevenLabsConfig != nil && tts.ElevenLabsConfig.APIKey == "" {
			tts.ElevenLabsConfig.APIKey = h.keys.ElevenLabs
		}
		if tts.NeuphonicConfig != nil && tts.NeuphonicConfig.APIKey == "" {
			tts.NeuphonicConfig.APIKey = h.keys.Neuphonic
		}
	}
	if stt != nil && stt.WhisperConfig != nil && stt.WhisperConfig.APIKey == "" {
		stt.WhisperConfig.APIKey = h.keys.Whisper
	}
}
