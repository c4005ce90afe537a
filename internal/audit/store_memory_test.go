package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ListRecent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Record{
			SessionID: fmt.Sprintf("s-%d", i),
			Action:    ActionSubmissionAccepted,
		}))
	}

	recent, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "s-4", recent[0].SessionID)
	assert.Equal(t, "s-2", recent[2].SessionID)

	all, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemoryStore_CapDropsOldest(t *testing.T) {
	store := NewMemoryStore(WithMaxRecords(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Record{
			SessionID: fmt.Sprintf("s-%d", i),
			Action:    ActionSubmissionAccepted,
		}))
	}

	assert.Equal(t, 3, store.Len())

	dropped, err := store.ListBySession(ctx, "s-0")
	require.NoError(t, err)
	assert.Empty(t, dropped)

	kept, err := store.ListBySession(ctx, "s-4")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Record{SessionID: "s-1"}))
	store.Clear()
	assert.Equal(t, 0, store.Len())
}
