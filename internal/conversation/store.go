package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/calbot/internal/instrumentation"
	"github.com/teemow/calbot/internal/logging"
)

// Defaults for session lifetime and size.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultMaxTurns      = 20
	DefaultSweepInterval = 10 * time.Minute
)

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role
	Content string
}

type session struct {
	turns        []Turn
	lastActivity time.Time
}

// Store keeps a bounded, time-boxed transcript per user. A session idle for
// longer than the TTL is treated as absent, whether or not the sweeper has
// removed it yet.
type Store struct {
	sessions map[string]*session
	mu       sync.Mutex

	ttl      time.Duration
	maxTurns int
	now      func() time.Time

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once

	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle timeout.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxTurns sets how many turns a session retains.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics tracks the number of live sessions.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store. Call Start to run the background sweeper.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*session),
		ttl:      DefaultTTL,
		maxTurns: DefaultMaxTurns,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "conversation")
	return s
}

func (s *Store) expired(sess *session, now time.Time) bool {
	return now.Sub(sess.lastActivity) > s.ttl
}

// remove deletes a session. Callers hold s.mu.
func (s *Store) remove(userID string) {
	if _, ok := s.sessions[userID]; !ok {
		return
	}
	delete(s.sessions, userID)
	s.metrics.DecrementActiveSessions(context.Background())
}

// Get returns a copy of the user's turns, oldest first. An expired session is
// dropped and reported as empty.
func (s *Store) Get(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	if s.expired(sess, s.now()) {
		s.remove(userID)
		return nil
	}

	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Append adds turns to the user's session, creating it when absent or
// expired, refreshing its activity time and evicting the oldest turns beyond
// the limit.
func (s *Store) Append(userID string, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[userID]
	if ok && s.expired(sess, now) {
		s.remove(userID)
		ok = false
	}
	if !ok {
		sess = &session{}
		s.sessions[userID] = sess
		s.metrics.IncrementActiveSessions(context.Background())
	}

	sess.turns = append(sess.turns, turns...)
	if over := len(sess.turns) - s.maxTurns; over > 0 {
		sess.turns = append([]Turn(nil), sess.turns[over:]...)
	}
	sess.lastActivity = now
}

// Clear drops the user's session.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(userID)
}

// Len returns the number of stored sessions, including expired ones the
// sweeper has not reached yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiredCount := 0
	for userID, sess := range s.sessions {
		if s.expired(sess, now) {
			s.remove(userID)
			expiredCount++
		}
	}
	return expiredCount
}

// Start runs Sweep every interval until Stop is called.
func (s *Store) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s.mu.Lock()
	if s.cleanupTicker != nil {
		s.mu.Unlock()
		return
	}
	s.cleanupTicker = time.NewTicker(interval)
	s.cleanupDone = make(chan struct{})
	ticker, done := s.cleanupTicker, s.cleanupDone
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Info("Cleaned up expired conversations", "count", n)
				}
			case <-done:
				return
			}
		}
	}()
}

// Stop stops the sweeper. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
			close(s.cleanupDone)
		}
	})
}
