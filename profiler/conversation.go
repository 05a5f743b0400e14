package profiler

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/nori-cloud/story/core"
)

// DefaultMaxHistoryMessages bounds the rolling history when no explicit limit
// is configured. The unit is individual turns, not human/ai pairs.
const DefaultMaxHistoryMessages = 40

// ChatService runs one completion over an ordered list of turns and returns
// the assistant's reply text.
type ChatService interface {
	Complete(ctx context.Context, turns []core.ChatTurn) (string, error)
}

// Conversation owns one system prompt and one bounded rolling history, and
// forwards both to a ChatService on every chat call.
type Conversation struct {
	svc          ChatService
	systemPrompt string
	messages     []core.ChatTurn
	maxMessages  int
}

// NewConversation creates a Conversation. maxMessages <= 0 falls back to
// DefaultMaxHistoryMessages.
func NewConversation(svc ChatService, systemPrompt string, maxMessages int) *Conversation {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxHistoryMessages
	}
	return &Conversation{
		svc:          svc,
		systemPrompt: systemPrompt,
		maxMessages:  maxMessages,
	}
}

// Chat appends the human turn, runs a completion over
// [system, ...history], appends the ai turn, and trims the history to the
// configured bound keeping the most recent turns.
func (c *Conversation) Chat(ctx context.Context, message string) (string, error) {
	c.messages = append(c.messages, core.HumanTurn(message))

	full := make([]core.ChatTurn, 0, len(c.messages)+1)
	full = append(full, core.SystemTurn(c.systemPrompt))
	full = append(full, c.messages...)

	response, err := c.svc.Complete(ctx, full)
	if err != nil {
		// The failed human turn stays out of history so a retry replays
		// the same state.
		c.messages = c.messages[:len(c.messages)-1]
		return "", err
	}

	c.messages = append(c.messages, core.AITurn(response))
	c.trim()
	return response, nil
}

// History returns a copy of the rolling history, excluding the system turn.
func (c *Conversation) History() []core.ChatTurn {
	out := make([]core.ChatTurn, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear resets the history. The system prompt is retained.
func (c *Conversation) Clear() {
	c.messages = nil
}

// SetSystemPrompt replaces the system prompt without touching history.
func (c *Conversation) SetSystemPrompt(prompt string) {
	c.systemPrompt = prompt
}

// SystemPrompt returns the current system prompt.
func (c *Conversation) SystemPrompt() string {
	return c.systemPrompt
}

// TokenCount estimates token usage as ceil(chars * 1.3) over the system
// prompt plus the same estimate over the history. A crude heuristic, not a
// tokenizer; treat the result as approximate.
func (c *Conversation) TokenCount() int {
	return estimateTokens([]core.ChatTurn{core.SystemTurn(c.systemPrompt)}) +
		estimateTokens(c.messages)
}

func (c *Conversation) trim() {
	if len(c.messages) > c.maxMessages {
		c.messages = c.messages[len(c.messages)-c.maxMessages:]
	}
}

func estimateTokens(turns []core.ChatTurn) int {
	// Runes, not bytes, so non-ASCII text does not inflate the estimate.
	// Characters outside the BMP still count one here versus two in a
	// UTF-16 code-unit count.
	totalChars := 0
	for _, turn := range turns {
		totalChars += utf8.RuneCountInString(turn.Content)
	}
	return int(math.Ceil(float64(totalChars) * 1.3))
}
