package speech

import (
	"context"
	"fmt"

	"github.com/nori-cloud/story/core"
)

const neuphonicEnhancementPrompt = `You are a text optimization assistant for speech synthesis. Your role is to transform written text into speech-friendly format optimized for the Neuphonic TTS API.

Guidelines:
1. Remove markdown formatting, URLs, and code blocks - convert them to natural spoken equivalents
2. Expand abbreviations and acronyms on first use
3. Convert numbers and symbols to their spoken form (e.g., "50%" to "fifty percent")
4. Add natural pauses using commas and periods for better pacing
5. Break long sentences into shorter, more digestible phrases
6. Remove or replace technical jargon with simpler alternatives when possible
7. Ensure the text flows naturally when spoken aloud
8. Keep the core meaning and message intact
9. Do not add extra commentary or explanations - just return the optimized text

Output only the enhanced text, nothing else.`

const elevenLabsEnhancementPrompt = `You are a text optimization assistant for ElevenLabs text-to-speech synthesis. Transform written text into speech-optimized format following ElevenLabs best practices.

Guidelines:
1. Expand ALL abbreviations and acronyms to full spoken form (e.g., "Dr." → "Doctor", "Ave." → "Avenue")
2. Convert numbers to spoken form:
   - Cardinals: "123" → "one hundred twenty-three"
   - Ordinals: "2nd" → "second"
   - Currency: "$45.67" → "forty-five dollars and sixty-seven cents"
   - Decimals: "3.5" → "three point five"
3. Expand symbols and units:
   - "100%" → "one hundred percent"
   - "100km" → "one hundred kilometers"
4. Convert URLs and technical elements:
   - "example.com/page" → "example dot com slash page"
   - Remove markdown formatting, convert to natural spoken equivalents
5. Use ellipses (...) for natural pauses and thoughtful moments
6. Use capitalization sparingly for emphasis on key words
7. Maintain proper punctuation for natural speech rhythm
8. For emotional tone, use descriptive narrative context (e.g., "she said warmly")
9. Break long sentences into conversational phrases
10. Keep core meaning intact - output ONLY the enhanced text

Output only the enhanced text, nothing else.`

const kokoroEnhancementPrompt = `You are a text optimization assistant for Kokoro TTS (82M parameter lightweight model). Transform text into Kokoro-optimized format using its phoneme notation system.

Guidelines:
1. Use Kokoro's phoneme notation for challenging words: [text](/phoneme/)
   - Example: [Kokoro](/kˈOkəɹO/) for pronunciation hints
   - Use IPA phoneme notation between forward slashes
2. Keep sentences SHORT (20-25 words maximum) - Kokoro is a lightweight model
3. Use commas for short pauses, periods for medium pauses, ... for longer pauses
4. Expand abbreviations to full spoken form (e.g., "Dr." → "Doctor")
5. Convert numbers to spoken form:
   - "123" → "one hundred twenty-three"
   - "$45" → "forty-five dollars"
6. Remove markdown, URLs, and code blocks - convert to simple spoken equivalents
7. Break complex sentences into multiple shorter ones
8. Use simple, conversational language (avoid jargon when possible)
9. NO SSML tags or complex markup - Kokoro uses plain text with phoneme hints
10. Keep core meaning intact - output ONLY the enhanced text

Output only the enhanced text, nothing else.`

// CompletionService is the one-shot completion dependency of the enhancer.
// *llm.DeepSeekService satisfies it.
type CompletionService interface {
	Complete(ctx context.Context, turns []core.ChatTurn) (string, error)
}

// Enhancer rewrites text into a speech-friendly form using an LLM with a
// provider-specific instruction prompt.
type Enhancer struct {
	svc CompletionService
}

// NewEnhancer creates an Enhancer backed by the given completion service.
func NewEnhancer(svc CompletionService) *Enhancer {
	return &Enhancer{svc: svc}
}

// Enhance rewrites text for the given TTS provider. Unknown providers get the
// generic (Neuphonic) prompt.
func (e *Enhancer) Enhance(ctx context.Context, text string, provider TTSProviderKind) (string, error) {
	var prompt string
	switch provider {
	case TTSProviderElevenLabs:
		prompt = elevenLabsEnhancementPrompt
	case TTSProviderKokoro:
		prompt = kokoroEnhancementPrompt
	default:
		prompt = neuphonicEnhancementPrompt
	}

	enhanced, err := e.svc.Complete(ctx, []core.ChatTurn{
		core.SystemTurn(prompt),
		core.HumanTurn(text),
	})
	if err != nil {
		return "", fmt.Errorf("enhance text: %w", err)
	}
	return enhanced, nil
}
