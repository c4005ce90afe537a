// Package circuit provides a per-dependency circuit breaker.
//
// A breaker guards one downstream dependency (a reference table source).
// Consecutive failures open it; while open, callers skip the dependency
// instead of hammering it. After a cooldown the breaker resets on the next
// IsOpen check and traffic flows again.
package circuit

import (
	"sync"
	"time"
)

// Defaults applied when no option overrides them.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// State is the breaker's current position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Clock returns the current time. Injected in tests.
type Clock func() time.Time

// Breaker tracks consecutive failures for a single named dependency.
// All methods are safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	clock     Clock

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open after the last failure.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(b *Breaker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// New creates a closed breaker for the named dependency.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: DefaultFailureThreshold,
		cooldown:  DefaultCooldown,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen reports whether calls should be skipped. An open breaker whose
// cooldown has elapsed resets to closed as a side effect and reports false,
// letting the next call probe the dependency.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return false
	}
	if b.clock().Sub(b.lastFailure) >= b.cooldown {
		b.resetLocked()
		return false
	}
	return true
}

// RecordFailure counts a failed call. Reaching the threshold opens the
// breaker; further failures while open push the cooldown window forward.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.clock()
	if b.failures >= b.threshold {
		b.state = StateOpen
	}
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetLocked()
}

// State returns the current state, applying the same cooldown reset as IsOpen.
func (b *Breaker) State() State {
	b.IsOpen()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time view of a breaker for status endpoints.
type Snapshot struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
}

// Snapshot returns the breaker's current state for reporting.
func (b *Breaker) Snapshot() Snapshot {
	b.IsOpen()

	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:        b.name,
		State:       b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}

// resetLocked returns the breaker to closed. Callers must hold b.mu.
func (b *Breaker) resetLocked() {
	b.state = StateClosed
	b.failures = 0
	b.lastFailure = time.Time{}
}
