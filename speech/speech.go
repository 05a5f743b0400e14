// Package speech bundles one text-to-speech provider, one speech-to-text
// provider, and an optional LLM enhancement pass into the single unit the
// HTTP routes talk to.
package speech

import (
	"context"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/utils/text"
)

// TTSProviderKind identifies a text-to-speech vendor. The kind is chosen once
// at construction; nothing inspects concrete service types at runtime.
type TTSProviderKind string

const (
	TTSProviderElevenLabs TTSProviderKind = "elevenlabs"
	TTSProviderNeuphonic  TTSProviderKind = "neuphonic"
	TTSProviderKokoro     TTSProviderKind = "kokoro"
)

// STTProviderKind identifies a speech-to-text vendor.
type STTProviderKind string

const (
	STTProviderWhisper STTProviderKind = "whisper"
)

// Result is the outcome of a TextToSpeech call. EnhancedText is empty when
// the enhancement pass was disabled or failed.
type Result struct {
	Audio        []byte
	EnhancedText string
}

// Speech orchestrates TTS generation (with optional text enhancement) and
// STT transcription.
type Speech struct {
	tts     core.TTSService
	ttsKind TTSProviderKind
	stt     core.STTService

	enhancer *Enhancer
	logger   *core.Logger
}

// New creates a Speech orchestrator. A nil enhancer disables the enhancement
// pass entirely.
func New(tts core.TTSService, ttsKind TTSProviderKind, stt core.STTService, enhancer *Enhancer, logger *core.Logger) *Speech {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Speech{
		tts:      tts,
		ttsKind:  ttsKind,
		stt:      stt,
		enhancer: enhancer,
		logger:   logger.With(map[string]any{"component": "speech"}),
	}
}

// TTSKind returns the configured TTS provider kind.
func (s *Speech) TTSKind() TTSProviderKind {
	return s.ttsKind
}

// TextToSpeech generates audio for text. When an enhancer is configured the
// text is first rewritten for speech; an enhancement failure is non-fatal and
// falls back to the raw text.
func (s *Speech) TextToSpeech(ctx context.Context, text string, opts core.TTSOptions) (Result, error) {
	toSpeak := text
	enhanced := ""

	if s.enhancer != nil {
		out, err := s.enhancer.Enhance(ctx, text, s.ttsKind)
		if err != nil {
			s.logger.With(map[string]any{"error": err}).Warn("text enhancement failed, using raw text")
		} else {
			toSpeak = out
			enhanced = out
		}
	}

	audio, err := s.tts.Generate(ctx, toSpeak, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Audio: audio, EnhancedText: enhanced}, nil
}

// SpeechToText transcribes audio. The raw transcript is cleaned of
// hesitation fillers and excess whitespace before it is returned.
func (s *Speech) SpeechToText(ctx context.Context, audio []byte, opts core.STTOptions) (core.STTResult, error) {
	result, err := s.stt.Transcribe(ctx, audio, opts)
	if err != nil {
		return core.STTResult{}, err
	}
	result.Text = text.CleanTranscript(result.Text)
	return result, nil
}
