package profiler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nori-cloud/story/core"
)

// scriptedChat replies with canned responses and records every completion
// request it receives. Safe for concurrent use.
type scriptedChat struct {
	mu      sync.Mutex
	replies []string
	calls   [][]core.ChatTurn
	err     error
}

func (s *scriptedChat) Complete(_ context.Context, turns []core.ChatTurn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, turns)
	if s.err != nil {
		return "", s.err
	}
	reply := fmt.Sprintf("reply %d", len(s.calls))
	if len(s.replies) >= len(s.calls) {
		reply = s.replies[len(s.calls)-1]
	}
	return reply, nil
}

func TestConversationChatAppendsPairs(t *testing.T) {
	svc := &scriptedChat{replies: []string{"A1"}}
	conv := NewConversation(svc, "sys", 0)

	got, err := conv.Chat(context.Background(), "H1")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got != "A1" {
		t.Errorf("response = %q, want A1", got)
	}

	history := conv.History()
	want := []core.ChatTurn{core.HumanTurn("H1"), core.AITurn("A1")}
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d", len(history), len(want))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], want[i])
		}
	}
}

func TestConversationSendsSystemPromptFirst(t *testing.T) {
	svc := &scriptedChat{}
	conv := NewConversation(svc, "the rules", 0)

	if _, err := conv.Chat(context.Background(), "hello"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	sent := svc.calls[0]
	if sent[0] != core.SystemTurn("the rules") {
		t.Errorf("first turn = %+v, want system prompt", sent[0])
	}
	if sent[len(sent)-1] != core.HumanTurn("hello") {
		t.Errorf("last turn = %+v, want the new human message", sent[len(sent)-1])
	}
}

func TestConversationTrimKeepsMostRecentTurns(t *testing.T) {
	// Bound counts individual messages, not human/ai pairs: with max 2, three
	// chat calls leave exactly the last human/ai pair.
	svc := &scriptedChat{replies: []string{"A1", "A2", "A3"}}
	conv := NewConversation(svc, "sys", 2)

	for i := 1; i <= 3; i++ {
		if _, err := conv.Chat(context.Background(), fmt.Sprintf("H%d", i)); err != nil {
			t.Fatalf("chat %d: %v", i, err)
		}
	}

	history := conv.History()
	want := []core.ChatTurn{core.HumanTurn("H3"), core.AITurn("A3")}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], want[i])
		}
	}
}

func TestConversationTrimOddBoundLeavesUnpairedTurn(t *testing.T) {
	// An odd bound can cut a pair in half; the dangling ai turn at the front
	// is long-standing behaviour, kept as is.
	svc := &scriptedChat{replies: []string{"A1", "A2"}}
	conv := NewConversation(svc, "sys", 3)

	if _, err := conv.Chat(context.Background(), "H1"); err != nil {
		t.Fatal(err)
	}
	if _, err := conv.Chat(context.Background(), "H2"); err != nil {
		t.Fatal(err)
	}

	history := conv.History()
	want := []core.ChatTurn{core.AITurn("A1"), core.HumanTurn("H2"), core.AITurn("A2")}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], want[i])
		}
	}
}

func TestConversationHistoryNeverExceedsBound(t *testing.T) {
	svc := &scriptedChat{}
	conv := NewConversation(svc, "sys", 5)

	for i := 0; i < 20; i++ {
		if _, err := conv.Chat(context.Background(), "msg"); err != nil {
			t.Fatal(err)
		}
		if got := len(conv.History()); got > 5 {
			t.Fatalf("after chat %d history length = %d, exceeds bound 5", i, got)
		}
	}
}

func TestConversationHistoryIsACopy(t *testing.T) {
	svc := &scriptedChat{replies: []string{"A1"}}
	conv := NewConversation(svc, "sys", 0)
	if _, err := conv.Chat(context.Background(), "H1"); err != nil {
		t.Fatal(err)
	}

	snapshot := conv.History()
	snapshot[0] = core.HumanTurn("mutated")

	if conv.History()[0] != core.HumanTurn("H1") {
		t.Error("mutating the snapshot leaked into internal state")
	}
}

func TestConversationClearRetainsSystemPrompt(t *testing.T) {
	svc := &scriptedChat{}
	conv := NewConversation(svc, "sys", 0)
	if _, err := conv.Chat(context.Background(), "H1"); err != nil {
		t.Fatal(err)
	}

	conv.Clear()

	if got := len(conv.History()); got != 0 {
		t.Errorf("history length after clear = %d, want 0", got)
	}
	if conv.SystemPrompt() != "sys" {
		t.Errorf("system prompt after clear = %q, want sys", conv.SystemPrompt())
	}
}

func TestConversationChatErrorLeavesHistoryUntouched(t *testing.T) {
	svc := &scriptedChat{err: errors.New("upstream down")}
	conv := NewConversation(svc, "sys", 0)

	if _, err := conv.Chat(context.Background(), "H1"); err == nil {
		t.Fatal("expected error")
	}
	if got := len(conv.History()); got != 0 {
		t.Errorf("history length after failed chat = %d, want 0", got)
	}
}

func TestTokenCountFormula(t *testing.T) {
	svc := &scriptedChat{replies: []string{"ABCDE"}} // 5 chars
	conv := NewConversation(svc, "0123456789", 0)    // 10 chars

	// ceil(10 * 1.3) = 13 for the system prompt alone.
	if got := conv.TokenCount(); got != 13 {
		t.Errorf("token count of empty conversation = %d, want 13", got)
	}

	if _, err := conv.Chat(context.Background(), "abc"); err != nil { // 3 chars
		t.Fatal(err)
	}

	// ceil(10*1.3) + ceil((3+5)*1.3) = 13 + 11 = 24.
	if got := conv.TokenCount(); got != 24 {
		t.Errorf("token count after chat = %d, want 24", got)
	}
}

func TestTokenCountCountsRunesNotBytes(t *testing.T) {
	svc := &scriptedChat{}
	// 5 runes, 15 bytes in UTF-8: a byte count would give ceil(15*1.3)=20.
	conv := NewConversation(svc, "こんにちは", 0)

	if got := conv.TokenCount(); got != 7 { // ceil(5 * 1.3)
		t.Errorf("token count = %d, want 7", got)
	}
}

func TestTokenCountMonotonicUntilClear(t *testing.T) {
	svc := &scriptedChat{}
	conv := NewConversation(svc, "system prompt", 0)

	base := conv.TokenCount()
	prev := base
	for i := 0; i < 5; i++ {
		if _, err := conv.Chat(context.Background(), "another message"); err != nil {
			t.Fatal(err)
		}
		cur := conv.TokenCount()
		if cur < prev {
			t.Fatalf("token count decreased: %d -> %d", prev, cur)
		}
		prev = cur
	}

	conv.Clear()
	if got := conv.TokenCount(); got != base {
		t.Errorf("token count after clear = %d, want system-prompt-only estimate %d", got, base)
	}
}
