package core

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestChatTurnMarshalJSON(t *testing.T) {
	data, err := sonic.Marshal(HumanTurn("hello there"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(data); got != `["human","hello there"]` {
		t.Errorf("unexpected wire format: %s", got)
	}
}

func TestChatTurnUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ChatTurn
		wantErr bool
	}{
		{name: "human", input: `["human","hi"]`, want: HumanTurn("hi")},
		{name: "ai", input: `["ai","hello"]`, want: AITurn("hello")},
		{name: "system", input: `["system","rules"]`, want: SystemTurn("rules")},
		{name: "unknown role", input: `["robot","hi"]`, wantErr: true},
		{name: "wrong arity", input: `["human"]`, wantErr: true},
		{name: "not an array", input: `{"role":"human"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var turn ChatTurn
			err := sonic.Unmarshal([]byte(tt.input), &turn)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", turn)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if turn != tt.want {
				t.Errorf("got %+v, want %+v", turn, tt.want)
			}
		})
	}
}

func TestChatTurnRoundTrip(t *testing.T) {
	turns := []ChatTurn{
		SystemTurn("you are helpful"),
		HumanTurn("who is this about?"),
		AITurn("it is about the profile owner"),
	}

	data, err := sonic.Marshal(turns)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded []ChatTurn
	if err := sonic.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != len(turns) {
		t.Fatalf("length mismatch: got %d, want %d", len(decoded), len(turns))
	}
	for i := range turns {
		if decoded[i] != turns[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, decoded[i], turns[i])
		}
	}
}
