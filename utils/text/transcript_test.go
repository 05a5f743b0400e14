package text

import "testing"

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "tell me about Jane", "tell me about Jane"},
		{"collapses whitespace", "  tell  me\n about\tJane ", "tell me about Jane"},
		{"strips fillers", "um, tell me uh about Jane", "tell me about Jane"},
		{"filler case insensitive", "Um... what does she do?", "what does she do?"},
		{"keeps filler-like substrings", "the umbrella hummed", "the umbrella hummed"},
		{"all fillers", "uh um hmm", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTranscript(tt.in); got != tt.want {
				t.Errorf("CleanTranscript(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
