package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	b := New("biorempp")

	assert.Equal(t, "biorempp", b.Name())
	assert.Equal(t, DefaultFailureThreshold, b.threshold)
	assert.Equal(t, DefaultCooldown, b.cooldown)
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestOpensAtThreshold(t *testing.T) {
	b := New("kegg", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "below threshold must stay closed")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.Equal(t, StateOpen, b.State())
}

func TestSuccessClosesAndClearsCount(t *testing.T) {
	b := New("hadeg", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()

	// The count restarts from zero, so one more failure is not enough.
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.RecordSuccess()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestCooldownResets(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := New("toxcsm",
		WithFailureThreshold(1),
		WithCooldown(30*time.Second),
		WithClock(func() time.Time { return now }),
	)

	b.RecordFailure()
	require.True(t, b.IsOpen())

	now = now.Add(29 * time.Second)
	assert.True(t, b.IsOpen(), "cooldown not yet elapsed")

	now = now.Add(1 * time.Second)
	assert.False(t, b.IsOpen(), "cooldown elapsed resets the breaker")

	// The reset cleared the count: the next failure reopens immediately
	// only because the threshold is 1.
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestFailureWhileOpenExtendsCooldown(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := New("biorempp",
		WithFailureThreshold(1),
		WithCooldown(30*time.Second),
		WithClock(func() time.Time { return now }),
	)

	b.RecordFailure()
	now = now.Add(20 * time.Second)
	b.RecordFailure()

	now = now.Add(15 * time.Second)
	assert.True(t, b.IsOpen(), "cooldown counts from the most recent failure")

	now = now.Add(15 * time.Second)
	assert.False(t, b.IsOpen())
}

func TestSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := New("kegg",
		WithFailureThreshold(2),
		WithClock(func() time.Time { return now }),
	)

	snap := b.Snapshot()
	assert.Equal(t, "kegg", snap.Name)
	assert.Equal(t, "closed", snap.State)
	assert.Zero(t, snap.Failures)
	assert.True(t, snap.LastFailure.IsZero())

	b.RecordFailure()
	b.RecordFailure()

	snap = b.Snapshot()
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, 2, snap.Failures)
	assert.Equal(t, now, snap.LastFailure)
}

func TestConcurrentRecording(t *testing.T) {
	b := New("biorempp", WithFailureThreshold(50))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
			b.IsOpen()
		}()
	}
	wg.Wait()

	assert.True(t, b.IsOpen())

	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
}
