package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsSumTo100(t *testing.T) {
	sum := 0
	for _, w := range stageWeights {
		sum += w
	}
	assert.Equal(t, 100, sum)
	assert.Len(t, stageWeights, NumStages)
}

func TestOverallProgress(t *testing.T) {
	tests := []struct {
		name    string
		stage   int
		percent float64
		want    float64
	}{
		{name: "start of first stage", stage: 0, percent: 0, want: 0},
		{name: "mid first stage", stage: 0, percent: 50, want: 2.5},
		{name: "start of merge stage", stage: 1, percent: 0, want: 5},
		{name: "mid merge stage", stage: 1, percent: 50, want: 20},
		{name: "start of pathway stage", stage: 2, percent: 0, want: 35},
		{name: "start of last stage", stage: 7, percent: 0, want: 95},
		{name: "end of last stage", stage: 7, percent: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			tr.StartStage(tt.stage, "working")
			tr.Update(tt.percent, "")
			assert.InDelta(t, tt.want, tr.Overall(), 0.001)
		})
	}
}

func TestStartStageClampsIndex(t *testing.T) {
	tr := NewTracker()

	tr.StartStage(-3, "below")
	assert.Zero(t, tr.Snapshot().Stage)

	tr.StartStage(99, "beyond")
	assert.Equal(t, NumStages-1, tr.Snapshot().Stage)
}

func TestUpdateClampsPercent(t *testing.T) {
	tr := NewTracker()
	tr.StartStage(1, "merging")

	tr.Update(-10, "")
	assert.Zero(t, tr.Snapshot().StagePercent)

	tr.Update(150, "")
	assert.Equal(t, float64(100), tr.Snapshot().StagePercent)
}

func TestCompleteForcesFullProgress(t *testing.T) {
	tr := NewTracker()
	tr.StartStage(2, "pathway merge")
	tr.Update(40, "")

	tr.Complete()

	snap := tr.Snapshot()
	assert.Equal(t, NumStages-1, snap.Stage)
	assert.Equal(t, float64(100), snap.StagePercent)
	assert.Equal(t, float64(100), snap.OverallPercent)
	assert.True(t, snap.Done)
	assert.Empty(t, snap.Error)
}

func TestFailKeepsPosition(t *testing.T) {
	tr := NewTracker()
	tr.StartStage(3, "hadeg merge")
	tr.Update(60, "")

	tr.Fail("hadeg merge: circuit breaker open")

	snap := tr.Snapshot()
	assert.Equal(t, 3, snap.Stage)
	assert.Equal(t, float64(60), snap.StagePercent)
	assert.Equal(t, "hadeg merge: circuit breaker open", snap.Error)
	assert.True(t, snap.Done)
}

func TestEstimatedRemaining(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tr := NewTracker(WithClock(func() time.Time { return now }))

	// No time elapsed, no progress: unknown.
	_, ok := tr.EstimatedRemaining()
	assert.False(t, ok)

	// Time elapsed but zero progress: still unknown.
	now = now.Add(5 * time.Second)
	_, ok = tr.EstimatedRemaining()
	assert.False(t, ok)

	// 25% done after 5s means roughly 15s to go.
	tr.StartStage(1, "merging")
	tr.Update(100.0*2.0/3.0, "") // overall = 5 + 30*(2/3) = 25
	remaining, ok := tr.EstimatedRemaining()
	require.True(t, ok)
	assert.InDelta(t, 15*time.Second, remaining, float64(50*time.Millisecond))

	// Under a second elapsed: unknown even with progress.
	fast := NewTracker(WithClock(func() time.Time { return now }))
	fast.StartStage(1, "merging")
	fast.Update(50, "")
	_, ok = fast.EstimatedRemaining()
	assert.False(t, ok)
}

func TestSnapshotRemainingSeconds(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tr := NewTracker(WithClock(func() time.Time { return now }))

	snap := tr.Snapshot()
	assert.Nil(t, snap.RemainingSeconds)

	now = now.Add(10 * time.Second)
	tr.StartStage(4, "toxcsm merge")
	tr.Update(50, "")

	snap = tr.Snapshot()
	require.NotNil(t, snap.RemainingSeconds)
	assert.Greater(t, *snap.RemainingSeconds, float64(0))
	assert.InDelta(t, 10.0, snap.ElapsedSeconds, 0.001)

	tr.Complete()
	snap = tr.Snapshot()
	assert.Nil(t, snap.RemainingSeconds, "no estimate once done")
}

func TestUpdateKeepsMessageWhenEmpty(t *testing.T) {
	tr := NewTracker()
	tr.StartStage(1, "merging biorempp")

	tr.Update(30, "")
	assert.Equal(t, "merging biorempp", tr.Snapshot().Message)

	tr.Update(60, "still merging")
	assert.Equal(t, "still merging", tr.Snapshot().Message)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.StartStage(i%NumStages, "work")
			tr.Update(float64(i), "")
			tr.Overall()
			tr.Snapshot()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, tr.Overall(), float64(100))
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()

	tr := NewTracker()
	r.Add("session-1", tr)

	got, ok := r.Get("session-1")
	require.True(t, ok)
	assert.Same(t, tr, got)
	assert.Equal(t, 1, r.Len())

	r.Remove("session-1")
	_, ok = r.Get("session-1")
	assert.False(t, ok)
	assert.Zero(t, r.Len())

	// Removing an absent ID is a no-op.
	r.Remove("session-1")
}

func TestRegistryEvictsOldest(t *testing.T) {
	r := NewRegistry(WithMaxTrackers(2))

	r.Add("a", NewTracker())
	r.Add("b", NewTracker())
	r.Add("c", NewTracker())

	assert.Equal(t, 2, r.Len())
	_, ok := r.Get("a")
	assert.False(t, ok, "oldest entry must be evicted")
	_, ok = r.Get("b")
	assert.True(t, ok)
	_, ok = r.Get("c")
	assert.True(t, ok)
}

func TestRegistryReplaceDoesNotEvict(t *testing.T) {
	r := NewRegistry(WithMaxTrackers(2))

	r.Add("a", NewTracker())
	r.Add("b", NewTracker())

	replacement := NewTracker()
	r.Add("a", replacement)

	assert.Equal(t, 2, r.Len())
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	_, ok = r.Get("b")
	assert.True(t, ok)
}
