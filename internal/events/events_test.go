package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleted(t *testing.T) {
	e := Completed("sess-1", 3, 42, 120, false, 850*time.Millisecond)

	assert.Equal(t, TypeAnalysisCompleted, e.Type)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.Equal(t, 3, e.Samples)
	assert.Equal(t, 42, e.KOs)
	assert.Equal(t, 120, e.Matches)
	assert.False(t, e.FromCache)
	assert.Equal(t, int64(850), e.DurationMS)
	assert.Empty(t, e.Error)
}

func TestFailed(t *testing.T) {
	e := Failed("sess-2", errors.New("merge timed out"), 2*time.Second)

	assert.Equal(t, TypeAnalysisFailed, e.Type)
	assert.Equal(t, "sess-2", e.SessionID)
	assert.Equal(t, "merge timed out", e.Error)
	assert.Equal(t, int64(2000), e.DurationMS)
}

func TestFailedNilCause(t *testing.T) {
	e := Failed("sess-3", nil, 0)
	assert.Empty(t, e.Error)
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = NoopPublisher{}
	require.NoError(t, pub.Publish(context.Background(), Completed("s", 1, 1, 1, true, 0)))
	require.NoError(t, pub.Close(context.Background()))
}
