package analysis

import (
	"context"
	"sync"
	"time"

	"biorempp/pkg/platform/sentinel"
)

const (
	// DefaultSessionTTL is how long a finished session stays retrievable.
	DefaultSessionTTL = 24 * time.Hour

	// DefaultMaxSessions bounds the store; the oldest session is evicted
	// when the cap is reached.
	DefaultMaxSessions = 1000
)

type sessionEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory with TTL expiry and a
// capacity cap. Suitable for single-instance deployments; a shared store
// would be needed behind a load balancer.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	order   []string

	ttl   time.Duration
	max   int
	clock func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithTTL overrides how long sessions are retained after their last update.
func WithTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxSessions overrides the capacity cap.
func WithMaxSessions(max int) MemoryStoreOption {
	return func(s *MemoryStore) {
		if max > 0 {
			s.max = max
		}
	}
}

// WithStoreClock overrides the time source for tests.
func WithStoreClock(clock func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*sessionEntry),
		ttl:     DefaultSessionTTL,
		max:     DefaultMaxSessions,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save inserts or replaces a session and refreshes its expiry.
func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return sentinel.ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.pruneLocked(now)

	if _, exists := s.entries[session.ID]; !exists {
		if len(s.entries) >= s.max {
			s.evictOldestLocked()
		}
		s.order = append(s.order, session.ID)
	}
	s.entries[session.ID] = &sessionEntry{
		session:   *session,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// FindByID returns a copy of the stored session.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.clock().After(entry.expiresAt) {
		s.removeLocked(id)
		return nil, sentinel.ErrNotFound
	}
	session := entry.session
	return &session, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
	return nil
}

// Len reports how many sessions are held, including not-yet-pruned expired
// ones.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			s.removeLocked(id)
		}
	}
}

func (s *MemoryStore) evictOldestLocked() {
	if len(s.order) == 0 {
		return
	}
	s.removeLocked(s.order[0])
}

func (s *MemoryStore) removeLocked(id string) {
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
