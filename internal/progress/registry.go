package progress

import "sync"

// DefaultMaxTrackers bounds the registry when no option overrides it.
const DefaultMaxTrackers = 1000

// Registry maps session IDs to their trackers. It is bounded: adding beyond
// capacity evicts the oldest entry so abandoned sessions cannot grow the map
// forever.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	order    []string
	max      int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxTrackers overrides the registry capacity.
func WithMaxTrackers(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.max = n
		}
	}
}

// NewRegistry creates an empty bounded registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		trackers: make(map[string]*Tracker),
		max:      DefaultMaxTrackers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add stores a tracker under the session ID, evicting the oldest entry when
// the registry is full. Re-adding an existing ID replaces its tracker without
// eviction.
func (r *Registry) Add(sessionID string, t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trackers[sessionID]; exists {
		r.trackers[sessionID] = t
		return
	}
	if len(r.trackers) >= r.max && len(r.order) > 0 {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.trackers, oldest)
	}
	r.trackers[sessionID] = t
	r.order = append(r.order, sessionID)
}

// Get returns the tracker for the session ID.
func (r *Registry) Get(sessionID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[sessionID]
	return t, ok
}

// Remove deletes the session's tracker, if present.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trackers[sessionID]; !ok {
		return
	}
	delete(r.trackers, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
