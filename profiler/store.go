package profiler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nori-cloud/story/core"
)

// ErrSessionNotFound is the uniform error for any operation keyed by an
// unknown session id.
var ErrSessionNotFound = errors.New("session not found")

const (
	// DefaultIdleTimeout is how long a session may stay untouched before the
	// sweep removes it.
	DefaultIdleTimeout = time.Hour
	// DefaultSweepInterval is how often idle sessions are swept.
	DefaultSweepInterval = 10 * time.Minute
)

// session pairs a profiler with its access bookkeeping. The mutex serializes
// chat and history operations on one session; concurrent calls against
// different sessions never contend.
type session struct {
	id             string
	profiler       *Profiler
	createdAt      time.Time
	lastAccessedAt time.Time
	mu             sync.Mutex
}

// Factory constructs a fresh, uninitialized Profiler for a session.
type Factory func(config Config) *Profiler

// StoreConfig configures a SessionStore.
type StoreConfig struct {
	// IdleTimeout after which untouched sessions are evicted. Zero means
	// DefaultIdleTimeout.
	IdleTimeout time.Duration
	// SweepInterval between eviction passes. Zero means DefaultSweepInterval.
	SweepInterval time.Duration
}

// SessionStore owns all profiler sessions for the process. It is safe for
// concurrent use by request handlers and the background sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session

	factory       Factory
	idleTimeout   time.Duration
	sweepInterval time.Duration
	logger        *core.Logger
}

// NewSessionStore creates a SessionStore. The sweep does not run until
// StartSweep is called.
func NewSessionStore(factory Factory, config StoreConfig, logger *core.Logger) *SessionStore {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &SessionStore{
		sessions:      make(map[string]*session),
		factory:       factory,
		idleTimeout:   config.IdleTimeout,
		sweepInterval: config.SweepInterval,
		logger:        logger.With(map[string]any{"component": "session-store"}),
	}
}

// Create initializes a new profiler from the given URLs and registers it. A
// session exists in the store if and only if its context load succeeded; on
// load failure no session is created and the error is returned as-is.
func (s *SessionStore) Create(ctx context.Context, urls []string, maxHistoryMessages int) (string, error) {
	p := s.factory(Config{URLs: urls, MaxHistoryMessages: maxHistoryMessages})
	if err := p.Initialize(ctx); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	s.sessions[id] = &session{
		id:             id,
		profiler:       p,
		createdAt:      now,
		lastAccessedAt: now,
	}
	s.mu.Unlock()

	s.logger.With(map[string]any{"session_id": id}).Info("session created")
	return id, nil
}

// get looks up a session and refreshes its lastAccessedAt. Every read and
// write operation goes through here, so any successful touch resets the idle
// clock.
func (s *SessionStore) get(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastAccessedAt = time.Now()
	return sess, nil
}

// Delete removes a session. Idempotent: deleting an absent id returns false
// without error.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	return ok
}

// Chat delegates one chat call to the session's profiler.
func (s *SessionStore) Chat(ctx context.Context, sessionID, message string) (string, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.profiler.Chat(ctx, message)
}

// History returns a snapshot of the session's conversation history.
func (s *SessionStore) History(sessionID string) ([]core.ChatTurn, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.profiler.History(), nil
}

// ClearHistory resets the session's conversation history.
func (s *SessionStore) ClearHistory(sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.profiler.ClearHistory()
	return nil
}

// TokenCount returns the session's approximate token usage.
func (s *SessionStore) TokenCount(sessionID string) (int, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.profiler.TokenCount(), nil
}

// SetTone rebuilds the session's system prompt with the given tone.
func (s *SessionStore) SetTone(sessionID string, tone Tone) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.profiler.SetTone(tone)
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepExpired removes every session idle beyond the configured timeout and
// returns how many were removed.
func (s *SessionStore) SweepExpired() int {
	cutoff := time.Now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.lastAccessedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweep runs the eviction sweep on a ticker until ctx is cancelled.
func (s *SessionStore) StartSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("eviction sweep stopping")
				return
			case <-ticker.C:
				if removed := s.SweepExpired(); removed > 0 {
					s.logger.With(map[string]any{"removed": removed, "remaining": s.Len()}).Info("evicted idle sessions")
				}
			}
		}
	}()
}
