package factories

import (
	"errors"

	"github.com/nori-cloud/story/core"
	elevenlabstts "github.com/nori-cloud/story/services/elevenlabs/tts"
	kokorotts "github.com/nori-cloud/story/services/kokoro/tts"
	neuphonictts "github.com/nori-cloud/story/services/neuphonic/tts"
	"github.com/nori-cloud/story/speech"
)

// TTSFactoryConfig holds provider-specific configs for TTS service
// construction. Set exactly one provider config; the rest should be left nil.
type TTSFactoryConfig struct {
	ElevenLabsConfig *elevenlabstts.ElevenLabsTTSConfig `json:"elevenlabs,omitempty"`
	NeuphonicConfig  *neuphonictts.NeuphonicTTSConfig   `json:"neuphonic,omitempty"`
	KokoroConfig     *kokorotts.KokoroTTSConfig         `json:"kokoro,omitempty"`
}

// Kind returns the provider kind the config selects, or "" when none is set.
func (c TTSFactoryConfig) Kind() speech.TTSProviderKind {
	switch {
	case c.ElevenLabsConfig != nil:
		return speech.TTSProviderElevenLabs
	case c.NeuphonicConfig != nil:
		return speech.TTSProviderNeuphonic
	case c.KokoroConfig != nil:
		return speech.TTSProviderKokoro
	}
	return ""
}

// BuildTTSService constructs a TTSService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildTTSService(config TTSFactoryConfig, logger *core.Logger) (core.TTSService, error) {
	if config.ElevenLabsConfig != nil {
		return elevenlabstts.NewElevenLabsTTS(*config.ElevenLabsConfig, logger), nil
	}
	if config.NeuphonicConfig != nil {
		return neuphonictts.NewNeuphonicTTS(*config.NeuphonicConfig, logger), nil
	}
	if config.KokoroConfig != nil {
		return kokorotts.NewKokoroTTS(*config.KokoroConfig, logger), nil
	}
	return nil, errors.New("TTSFactoryConfig: no provider config specified")
}
