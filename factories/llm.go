package factories

import (
	"errors"

	"github.com/nori-cloud/story/core"
	deepseekllm "github.com/nori-cloud/story/services/deepseek/llm"
)

// LLMFactoryConfig holds provider-specific configs for chat-completion
// service construction. Set exactly one provider config; the rest should be
// left nil. Any OpenAI-compatible vendor can be reached through the DeepSeek
// service by overriding its base_url and model.
type LLMFactoryConfig struct {
	DeepSeekConfig *deepseekllm.Config `json:"deepseek,omitempty"`
}

// BuildLLMService constructs a completion service from the given factory
// config. Exactly one provider config must be non-nil.
func BuildLLMService(config LLMFactoryConfig, logger *core.Logger) (*deepseekllm.DeepSeekService, error) {
	if config.DeepSeekConfig != nil {
		return deepseekllm.NewDeepSeekService(*config.DeepSeekConfig, logger), nil
	}
	return nil, errors.New("LLMFactoryConfig: no provider config specified")
}
