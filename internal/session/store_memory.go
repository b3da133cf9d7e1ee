package session

import (
	"context"
	"sync"
	"time"

	"streetwatch/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in process memory with the idle timeout
// enforced on read. Expired entries are removed lazily; there is no sweeper
// goroutine at this scale.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	idle     time.Duration
	clock    func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryStore(idle time.Duration, opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]Session),
		idle:     idle,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = *sess
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.clock().Sub(sess.LastSeen) > s.idle {
		delete(s.sessions, token)
		return nil, sentinel.ErrExpired
	}
	return &sess, nil
}

func (s *InMemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
