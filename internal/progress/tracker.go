// Package progress tracks how far a pipeline run has advanced through its
// weighted stages, for polling by the HTTP layer.
package progress

import (
	"sync"
	"time"
)

// NumStages is the number of pipeline stages a tracker covers.
const NumStages = 8

// stageWeights is the share of overall progress each stage contributes.
// The weights sum to 100 and are never renormalized at runtime.
var stageWeights = [NumStages]int{5, 30, 15, 15, 15, 10, 5, 5}

// Clock returns the current time. Injected in tests.
type Clock func() time.Time

// Tracker records the current stage, intra-stage percentage and message of
// one pipeline run. All methods are safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	stage     int
	percent   float64
	message   string
	errMsg    string
	done      bool
	startedAt time.Time
	clock     Clock
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// NewTracker creates a tracker positioned at the first stage.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.startedAt = t.clock()
	return t
}

// StartStage moves the tracker to the given stage with zero intra-stage
// progress. Stages before it count as fully completed. Out-of-range indexes
// are clamped.
func (t *Tracker) StartStage(stage int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stage < 0 {
		stage = 0
	}
	if stage >= NumStages {
		stage = NumStages - 1
	}
	t.stage = stage
	t.percent = 0
	t.message = message
}

// Update sets the intra-stage percentage (clamped to 0..100) and message.
func (t *Tracker) Update(percent float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.percent = percent
	if message != "" {
		t.message = message
	}
}

// Complete forces the tracker to the last stage at 100%.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stage = NumStages - 1
	t.percent = 100
	t.done = true
	t.message = "completed"
}

// Fail records a terminal error message. The stage and percentage keep their
// last values so callers can see where the run stopped.
func (t *Tracker) Fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = true
	t.errMsg = message
}

// Overall returns the weighted overall percentage, capped at 100.
func (t *Tracker) Overall() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overallLocked()
}

func (t *Tracker) overallLocked() float64 {
	completed := 0
	for i := 0; i < t.stage; i++ {
		completed += stageWeights[i]
	}
	overall := float64(completed) + float64(stageWeights[t.stage])*t.percent/100
	if overall > 100 {
		overall = 100
	}
	return overall
}

// EstimatedRemaining extrapolates the remaining time linearly from elapsed
// time and overall percentage. It reports false while the estimate is
// meaningless: less than a second elapsed, or no progress yet.
func (t *Tracker) EstimatedRemaining() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimatedRemainingLocked()
}

func (t *Tracker) estimatedRemainingLocked() (time.Duration, bool) {
	elapsed := t.clock().Sub(t.startedAt)
	overall := t.overallLocked()
	if elapsed < time.Second || overall <= 0 {
		return 0, false
	}
	if overall >= 100 {
		return 0, true
	}
	remaining := time.Duration(float64(elapsed) * (100 - overall) / overall)
	return remaining, true
}

// Snapshot is a point-in-time view of a tracker for the HTTP layer.
type Snapshot struct {
	Stage            int      `json:"stage"`
	StagePercent     float64  `json:"stage_percent"`
	OverallPercent   float64  `json:"overall_percent"`
	Message          string   `json:"message"`
	Error            string   `json:"error,omitempty"`
	Done             bool     `json:"done"`
	ElapsedSeconds   float64  `json:"elapsed_seconds"`
	RemainingSeconds *float64 `json:"estimated_remaining_seconds,omitempty"`
}

// Snapshot returns the tracker's current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Stage:          t.stage,
		StagePercent:   t.percent,
		OverallPercent: t.overallLocked(),
		Message:        t.message,
		Error:          t.errMsg,
		Done:           t.done,
		ElapsedSeconds: t.clock().Sub(t.startedAt).Seconds(),
	}
	if remaining, ok := t.estimatedRemainingLocked(); ok && !t.done {
		secs := remaining.Seconds()
		snap.RemainingSeconds = &secs
	}
	return snap
}
