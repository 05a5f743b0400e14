package profiler

import "fmt"

// Tone selects the stylistic clause appended to the system prompt.
type Tone string

const (
	ToneSerious Tone = "serious"
	ToneCasual  Tone = "casual"
	ToneFunny   Tone = "funny"
	ToneCrazy   Tone = "crazy"
)

// DefaultTone is used when no tone (or an unknown one) is requested.
const DefaultTone = ToneCasual

var toneClauses = map[Tone]string{
	ToneSerious: "Keep a serious, professional tone: stay factual, measured, and to the point.",
	ToneCasual:  "Keep a casual, friendly tone, like chatting with a friend.",
	ToneFunny:   "Keep a light, funny tone: feel free to add a joke or a playful remark when it fits.",
	ToneCrazy:   "Go wild with the tone: be over-the-top, dramatic, and unpredictable while staying truthful to the information.",
}

const promptTemplate = `
You are a helpful AI assistant that answers questions about a person based on the provided information.

Here is the information about the person:

%s

Instructions:
- Answer questions based only on the information provided above
- Be conversational and friendly
- If asked about something not in the documents, politely say you don't have that information
- Keep responses extremely concise but informative
- Keep response character length with in 250 characters, unless the prompt explicitly said otherwise
- You can ask follow-up questions to better understand what the user wants to know
- %s
`

// BuildSystemPrompt renders the profiler system prompt from the loaded context
// text and a tone. An unknown tone falls back to DefaultTone rather than
// erroring.
func BuildSystemPrompt(contextText string, tone Tone) string {
	clause, ok := toneClauses[tone]
	if !ok {
		clause = toneClauses[DefaultTone]
	}
	return fmt.Sprintf(promptTemplate, contextText, clause)
}
