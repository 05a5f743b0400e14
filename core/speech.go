package core

import "context"

// TTSOptions are per-request text-to-speech options. Zero values mean the
// provider's defaults.
type TTSOptions struct {
	VoiceID string
	Speed   float64
}

// TTSService generates spoken audio for a piece of text. Implementations
// return a complete WAV (or provider-native audio) payload.
type TTSService interface {
	Generate(ctx context.Context, text string, opts TTSOptions) ([]byte, error)
}

// STTOptions are per-request speech-to-text options.
type STTOptions struct {
	Language string
	Model    string
}

// STTResult is a successful transcription. Language is empty when the
// provider does not report one.
type STTResult struct {
	Text     string
	Language string
}

// STTService transcribes audio to text.
type STTService interface {
	Transcribe(ctx context.Context, audio []byte, opts STTOptions) (STTResult, error)
}
