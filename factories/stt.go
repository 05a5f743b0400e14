package factories

import (
	"errors"

	"github.com/nori-cloud/story/core"
	whisperstt "github.com/nori-cloud/story/services/whisper/stt"
	"github.com/nori-cloud/story/speech"
)

// STTFactoryConfig holds provider-specific configs for STT service
// construction. Set exactly one provider config; the rest should be left nil.
type STTFactoryConfig struct {
	WhisperConfig *whisperstt.WhisperConfig `json:"whisper,omitempty"`
}

// Kind returns the provider kind the config selects, or "" when none is set.
func (c STTFactoryConfig) Kind() speech.STTProviderKind {
	if c.WhisperConfig != nil {
		return speech.STTProviderWhisper
	}
	return ""
}

// BuildSTTService constructs an STTService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildSTTService(config STTFactoryConfig, logger *core.Logger) (core.STTService, error) {
	if config.WhisperConfig != nil {
		return whisperstt.NewWhisperSTT(*config.WhisperConfig, logger), nil
	}
	return nil, errors.New("STTFactoryConfig: no provider config specified")
}
