// Package llm implements the chat-completion service against DeepSeek's
// OpenAI-compatible API.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nori-cloud/story/core"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// Config holds the configuration for the DeepSeek service.
type Config struct {
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	// Timeout bounds each completion call. Zero means 30s.
	Timeout time.Duration `json:"-"`
}

// DefaultConfig returns a config with the stock DeepSeek chat model.
func DefaultConfig() Config {
	return Config{
		BaseURL:     defaultBaseURL,
		Model:       "deepseek-chat",
		Temperature: 0.7,
	}
}

// DeepSeekService runs chat completions against DeepSeek. It implements
// profiler.ChatService.
type DeepSeekService struct {
	client  *openai.Client
	config  Config
	logger  *core.Logger
	timeout time.Duration
}

// NewDeepSeekService creates a new DeepSeek completion service.
func NewDeepSeekService(config Config, logger *core.Logger) *DeepSeekService {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = "deepseek-chat"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL

	return &DeepSeekService{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		logger:  logger,
		timeout: config.Timeout,
	}
}

// Complete runs one non-streaming completion over the given turns and returns
// the reply text.
func (s *DeepSeekService) Complete(ctx context.Context, turns []core.ChatTurn) (string, error) {
	if s.config.APIKey == "" {
		return "", fmt.Errorf("deepseek: API key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    convertTurns(turns),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("deepseek: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek: completion returned no choices")
	}

	s.logger.With(map[string]any{
		"model":       s.config.Model,
		"turns":       len(turns),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("completion finished")

	return resp.Choices[0].Message.Content, nil
}

// convertTurns maps chat turns onto OpenAI-protocol messages.
func convertTurns(turns []core.ChatTurn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    convertRole(turn.Role),
			Content: turn.Content,
		})
	}
	return messages
}

func convertRole(role core.ChatRole) string {
	switch role {
	case core.ChatRoleSystem:
		return openai.ChatMessageRoleSystem
	case core.ChatRoleAI:
		return openai.ChatMessageRoleAssistant
	case core.ChatRoleHuman:
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleUser
	}
}
