// Package text cleans up raw speech-to-text output before it reaches the
// chat layer.
package text

import (
	"regexp"
	"strings"
)

// fillers are standalone tokens the transcriber emits for hesitation sounds.
// Matching is case-insensitive and punctuation around the token is dropped
// with it.
var fillers = map[string]struct{}{
	"uh": {}, "um": {}, "uhm": {}, "er": {}, "erm": {},
	"hm": {}, "hmm": {}, "mhm": {}, "mm": {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanTranscript normalizes whitespace in a transcription and strips
// hesitation fillers. The result is trimmed; a transcript of nothing but
// fillers cleans to the empty string.
func CleanTranscript(raw string) string {
	collapsed := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
	if collapsed == "" {
		return ""
	}

	words := strings.Split(collapsed, " ")
	kept := words[:0]
	for _, w := range words {
		if isFiller(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isFiller(word string) bool {
	trimmed := strings.ToLower(strings.Trim(word, ".,!?;:\"'"))
	_, ok := fillers[trimmed]
	return ok
}
