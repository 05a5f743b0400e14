package profiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nori-cloud/story/core"
)

// ErrNotInitialized is returned when chat is attempted before a successful
// Initialize. This is a sequencing error on the caller's side, not a
// transient condition.
var ErrNotInitialized = errors.New("profiler not initialized")

// Config configures a Profiler instance.
type Config struct {
	// URLs are the reference documents to load. Blank entries are ignored.
	URLs []string
	// MaxHistoryMessages bounds the rolling history (individual turns).
	// Zero means DefaultMaxHistoryMessages.
	MaxHistoryMessages int
}

// Profiler answers questions about a person from a fixed reference context.
// It is created idle and becomes ready after Initialize loads the remote
// documents and seeds the system prompt.
type Profiler struct {
	config       Config
	svc          ChatService
	loader       *Loader
	logger       *core.Logger
	contextText  string
	conversation *Conversation
	initialized  bool
}

// New creates an uninitialized Profiler.
func New(config Config, svc ChatService, loader *Loader, logger *core.Logger) *Profiler {
	if loader == nil {
		loader = NewLoader(nil)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Profiler{
		config: config,
		svc:    svc,
		loader: loader,
		logger: logger,
	}
}

// Initialize fetches the reference documents and builds the system prompt.
// Blank URLs are filtered out first; with no URLs left the profiler starts
// with an empty context. Any fetch failure aborts initialization entirely.
func (p *Profiler) Initialize(ctx context.Context) error {
	validURLs := make([]string, 0, len(p.config.URLs))
	for _, u := range p.config.URLs {
		if strings.TrimSpace(u) != "" {
			validURLs = append(validURLs, u)
		}
	}

	if len(validURLs) == 0 {
		p.logger.Info("profiler initialized with no URLs (empty context)")
		p.contextText = ""
	} else {
		text, err := p.loader.FromURLs(ctx, validURLs)
		if err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
		p.contextText = text
		p.logger.With(map[string]any{"urls": validURLs}).Info("profiler initialized")
	}

	p.conversation = NewConversation(p.svc, BuildSystemPrompt(p.contextText, DefaultTone), p.config.MaxHistoryMessages)
	p.initialized = true
	return nil
}

// Initialized reports whether Initialize has completed successfully.
func (p *Profiler) Initialized() bool {
	return p.initialized
}

// SetTone rebuilds the system prompt from the stored context text and the new
// tone. History is untouched.
func (p *Profiler) SetTone(tone Tone) {
	if !p.initialized {
		return
	}
	p.conversation.SetSystemPrompt(BuildSystemPrompt(p.contextText, tone))
}

// SystemPrompt returns the current system prompt, or "" before initialization.
func (p *Profiler) SystemPrompt() string {
	if !p.initialized {
		return ""
	}
	return p.conversation.SystemPrompt()
}

// Chat sends one message through the conversation and returns the reply.
func (p *Profiler) Chat(ctx context.Context, message string) (string, error) {
	if !p.initialized {
		return "", ErrNotInitialized
	}
	return p.conversation.Chat(ctx, message)
}

// History returns a snapshot of the conversation history.
func (p *Profiler) History() []core.ChatTurn {
	if !p.initialized {
		return nil
	}
	return p.conversation.History()
}

// ClearHistory resets the conversation history.
func (p *Profiler) ClearHistory() {
	if !p.initialized {
		return
	}
	p.conversation.Clear()
}

// TokenCount returns the approximate token usage of the system prompt plus
// history.
func (p *Profiler) TokenCount() int {
	if !p.initialized {
		return 0
	}
	return p.conversation.TokenCount()
}
