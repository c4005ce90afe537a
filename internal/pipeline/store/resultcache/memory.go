package resultcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"biorempp/internal/pipeline/models"
	"biorempp/pkg/platform/sentinel"
)

// DefaultMaxEntries bounds the in-memory cache; merge results hold whole
// tables, so the ceiling is deliberately modest.
const DefaultMaxEntries = 256

type memoryEntry struct {
	result    *models.MergeResult
	createdAt time.Time
	ttl       time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Memory is the single-process ResultCache. Entries expire lazily on
// access; when an insert would exceed capacity the oldest entry by
// creation time is evicted first.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	clock      Clock
}

type MemoryOption func(*Memory)

// WithMaxEntries overrides the capacity ceiling.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: DefaultMaxEntries,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Get returns the cached result for key. Expired entries are evicted on
// access and reported as misses.
func (m *Memory) Get(ctx context.Context, key string) (*models.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", key, sentinel.ErrNotFound)
	}
	if e.expired(m.clock()) {
		delete(m.entries, key)
		return nil, fmt.Errorf("result %s: %w", key, sentinel.ErrExpired)
	}
	return e.result, nil
}

func (m *Memory) Set(ctx context.Context, key string, result *models.MergeResult, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[key] = memoryEntry{result: result, createdAt: m.clock(), ttl: ttl}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}

func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if e.expired(m.clock()) {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

// Size sweeps expired entries first, then reports the live count.
func (m *Memory) Size(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
	return len(m.entries), nil
}

// evictOldestLocked removes the single oldest entry by creation time.
// Must be called while holding m.mu.
func (m *Memory) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		first     = true
	)
	for key, e := range m.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.createdAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
