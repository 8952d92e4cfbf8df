// Package session provides the process-local, TTL-bounded conversation store.
package session

import (
	"sync"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/models"
)

// DefaultTTL is used when the store is created with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Store keeps chat sessions in memory and expires them lazily.
// All methods are thread-safe.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*models.ChatSession
	ttl      time.Duration
	sliding  bool
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSlidingExpiry measures the TTL from the last lookup instead of from creation.
func WithSlidingExpiry() Option {
	return func(s *Store) { s.sliding = true }
}

// NewStore creates an empty store.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*models.ChatSession),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate purges every expired session, then returns the session for id,
// creating an empty one if none exists.
func (s *Store) GetOrCreate(id string) *models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	sess, ok := s.sessions[id]
	if !ok {
		sess = models.NewChatSession(id, now)
		s.sessions[id] = sess
		return sess
	}
	sess.LastActive = now
	return sess
}

// Get returns the session for id without creating one.
// An expired session is removed and reported absent.
func (s *Store) Get(id string) (*models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.LastActive = now
	return sess, true
}

// Len returns the number of stored sessions, expired ones included until the next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked removes expired sessions. Caller must hold s.mu.
func (s *Store) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) expired(sess *models.ChatSession, now time.Time) bool {
	ref := sess.CreatedAt
	if s.sliding {
		ref = sess.LastActive
	}
	return now.Sub(ref) > s.ttl
}
