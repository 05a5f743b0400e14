package factories

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	deepseekllm "github.com/nori-cloud/story/services/deepseek/llm"
	kokorotts "github.com/nori-cloud/story/services/kokoro/tts"
	whisperstt "github.com/nori-cloud/story/services/whisper/stt"
)

// SessionSettings configures the profiler session store.
type SessionSettings struct {
	// MaxHistoryMessages bounds each session's rolling history. Zero means
	// the profiler default (40).
	MaxHistoryMessages int `json:"max_history_messages,omitempty"`
	// IdleTimeoutMinutes before an untouched session is evicted. Zero means
	// 60.
	IdleTimeoutMinutes int `json:"idle_timeout_minutes,omitempty"`
	// SweepIntervalMinutes between eviction passes. Zero means 10.
	SweepIntervalMinutes int `json:"sweep_interval_minutes,omitempty"`
}

// IdleTimeout returns the configured idle timeout as a duration.
func (s SessionSettings) IdleTimeout() time.Duration {
	if s.IdleTimeoutMinutes <= 0 {
		return 0 // store applies its default
	}
	return time.Duration(s.IdleTimeoutMinutes) * time.Minute
}

// SweepInterval returns the configured sweep interval as a duration.
func (s SessionSettings) SweepInterval() time.Duration {
	if s.SweepIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(s.SweepIntervalMinutes) * time.Minute
}

// SettingsConfig is the top-level config loaded from settings.json. API keys
// never live in the file; they are injected from the environment via
// InjectAPIKeys.
type SettingsConfig struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr,omitempty"`
	// Environment gates the /internal debug namespace; "production"
	// disables it.
	Environment string `json:"environment,omitempty"`

	// LLM selects and configures the chat-completion provider.
	LLM LLMFactoryConfig `json:"llm"`
	// TTS selects and configures the text-to-speech provider.
	TTS TTSFactoryConfig `json:"tts"`
	// STT selects and configures the speech-to-text provider.
	STT STTFactoryConfig `json:"stt"`

	// EnhanceText toggles the LLM speech-enhancement pass before TTS.
	// Unset means enabled.
	EnhanceText *bool `json:"enhance_text,omitempty"`

	// Session configures the profiler session store.
	Session SessionSettings `json:"session"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with provider
// defaults: DeepSeek completions, Kokoro TTS, Whisper STT.
func DefaultSettingsConfig() SettingsConfig {
	llmCfg := deepseekllm.DefaultConfig()
	return SettingsConfig{
		Addr:        ":8080",
		Environment: "development",
		LLM:         LLMFactoryConfig{DeepSeekConfig: &llmCfg},
		TTS:         TTSFactoryConfig{KokoroConfig: &kokorotts.KokoroTTSConfig{}},
		STT:         STTFactoryConfig{WhisperConfig: &whisperstt.WhisperConfig{}},
	}
}

// EnhanceTextEnabled reports whether the speech-enhancement pass is on.
func (c SettingsConfig) EnhanceTextEnabled() bool {
	return c.EnhanceText == nil || *c.EnhanceText
}

// InternalRoutesEnabled reports whether the /internal debug namespace should
// be served.
func (c SettingsConfig) InternalRoutesEnabled() bool {
	return c.Environment != "production"
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig, filling
// unspecified sections with defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	// Provider selection is one-of: a file that names a provider replaces
	// the default section rather than merging with it.
	var raw struct {
		Addr        string            `json:"addr,omitempty"`
		Environment string            `json:"environment,omitempty"`
		LLM         *LLMFactoryConfig `json:"llm,omitempty"`
		TTS         *TTSFactoryConfig `json:"tts,omitempty"`
		STT         *STTFactoryConfig `json:"stt,omitempty"`
		EnhanceText *bool             `json:"enhance_text,omitempty"`
		Session     *SessionSettings  `json:"session,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}

	if raw.Addr != "" {
		cfg.Addr = raw.Addr
	}
	if raw.Environment != "" {
		cfg.Environment = raw.Environment
	}
	if raw.LLM != nil {
		cfg.LLM = *raw.LLM
	}
	if raw.TTS != nil {
		cfg.TTS = *raw.TTS
	}
	if raw.STT != nil {
		cfg.STT = *raw.STT
	}
	if raw.EnhanceText != nil {
		cfg.EnhanceText = raw.EnhanceText
	}
	if raw.Session != nil {
		cfg.Session = *raw.Session
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys carries the provider credentials picked up from the environment.
type APIKeys struct {
	DeepSeek   string
	ElevenLabs string
	Neuphonic  string
	Whisper    string
}

// InjectAPIKeys fills in provider API keys on whichever provider configs are
// selected. Keys already present in the config win.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	if c.LLM.DeepSeekConfig != nil && c.LLM.DeepSeekConfig.APIKey == "" {
		c.LLM.DeepSeekConfig.APIKey = keys.DeepSeek
	}
	if c.TTS.ElevenLabsConfig != nil && c.TTS.ElevenLabsConfig.APIKey == "" {
		c.TTS.ElevenLabsConfig.APIKey = keys.ElevenLabs
	}
	if c.TTS.NeuphonicConfig != nil && c.TTS.NeuphonicConfig.APIKey == "" {
		c.TTS.NeuphonicConfig.APIKey = keys.Neuphonic
	}
	if c.STT.WhisperConfig != nil && c.STT.WhisperConfig.APIKey == "" {
		c.STT.WhisperConfig.APIKey = keys.Whisper
	}
}

// InjectProviderURLs overrides self-hosted provider base URLs (empty values
// are ignored).
func (c *SettingsConfig) InjectProviderURLs(kokoroURL, whisperURL string) {
	if c.TTS.KokoroConfig != nil && kokoroURL != "" {
		c.TTS.KokoroConfig.BaseURL = kokoroURL
	}
	if c.STT.WhisperConfig != nil && whisperURL != "" {
		c.STT.WhisperConfig.BaseURL = whisperURL
	}
}
