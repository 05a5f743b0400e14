package core

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	ChatRoleSystem ChatRole = "system"
	ChatRoleHuman  ChatRole = "human"
	ChatRoleAI     ChatRole = "ai"
)

// Valid reports whether the role is one of the known chat roles.
func (r ChatRole) Valid() bool {
	switch r {
	case ChatRoleSystem, ChatRoleHuman, ChatRoleAI:
		return true
	}
	return false
}

// ChatTurn is a single (role, content) pair in a conversation. On the wire it
// is a two-element JSON array, e.g. ["human", "hello"], matching the history
// format the profiler API has always returned.
type ChatTurn struct {
	Role    ChatRole
	Content string
}

// SystemTurn is shorthand for a system-role turn.
func SystemTurn(content string) ChatTurn {
	return ChatTurn{Role: ChatRoleSystem, Content: content}
}

// HumanTurn is shorthand for a human-role turn.
func HumanTurn(content string) ChatTurn {
	return ChatTurn{Role: ChatRoleHuman, Content: content}
}

// AITurn is shorthand for an ai-role turn.
func AITurn(content string) ChatTurn {
	return ChatTurn{Role: ChatRoleAI, Content: content}
}

// MarshalJSON encodes the turn as ["role", "content"].
func (t ChatTurn) MarshalJSON() ([]byte, error) {
	return sonic.Marshal([2]string{string(t.Role), t.Content})
}

// UnmarshalJSON decodes a ["role", "content"] pair.
func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := sonic.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("chat turn: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("chat turn: expected [role, content], got %d elements", len(pair))
	}
	role := ChatRole(pair[0])
	if !role.Valid() {
		return fmt.Errorf("chat turn: unknown role %q", pair[0])
	}
	t.Role = role
	t.Content = pair[1]
	return nil
}
