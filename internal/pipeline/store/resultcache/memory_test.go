package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biorempp/internal/pipeline/models"
	"biorempp/internal/tabular"
	"biorempp/pkg/platform/sentinel"
)

func sampleResult(t *testing.T, key string) *models.MergeResult {
	t.Helper()
	primary := tabular.MustNew([]string{"sample", "ko", "genesymbol"})
	require.NoError(t, primary.AppendRow([]string{"S1", "K00001", "adhE"}))
	return &models.MergeResult{
		Primary:      primary,
		Matches:      1,
		TotalRecords: 1,
		CacheKey:     key,
		CreatedAt:    time.Now(),
	}
}

func TestGenerateKey(t *testing.T) {
	k1 := GenerateKey("S1:K00001,K00002;S2:K00003")
	k2 := GenerateKey("S1:K00001,K00002;S2:K00003")
	k3 := GenerateKey("S1:K00001")

	assert.Equal(t, k1, k2, "same content, same key")
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 64)
}

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	result := sampleResult(t, "k1")

	require.NoError(t, m.Set(ctx, "k1", result, time.Minute))

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Same(t, result, got)

	ok, err := m.Has(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_Miss(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(WithClock(func() time.Time { return now }))

	require.NoError(t, m.Set(ctx, "k1", sampleResult(t, "k1"), time.Minute))

	now = now.Add(59 * time.Second)
	_, err := m.Get(ctx, "k1")
	require.NoError(t, err, "still inside ttl")

	now = now.Add(2 * time.Second)
	_, err = m.Get(ctx, "k1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrExpired)

	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "expired entry evicted on access")
}

func TestMemory_HasEvictsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(WithClock(func() time.Time { return now }))

	require.NoError(t, m.Set(ctx, "k1", sampleResult(t, "k1"), time.Second))
	now = now.Add(2 * time.Second)

	ok, err := m.Has(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_SizeSweepsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(WithClock(func() time.Time { return now }))

	require.NoError(t, m.Set(ctx, "short", sampleResult(t, "short"), time.Second))
	require.NoError(t, m.Set(ctx, "long", sampleResult(t, "long"), time.Hour))

	now = now.Add(time.Minute)
	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_FIFOEviction(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(WithMaxEntries(2), WithClock(func() time.Time { return now }))

	require.NoError(t, m.Set(ctx, "a", sampleResult(t, "a"), time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, m.Set(ctx, "b", sampleResult(t, "b"), time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, m.Set(ctx, "c", sampleResult(t, "c"), time.Hour))

	ok, _ := m.Has(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	ok, _ = m.Has(ctx, "b")
	assert.True(t, ok)
	ok, _ = m.Has(ctx, "c")
	assert.True(t, ok)
}

func TestMemory_OverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxEntries(2))

	require.NoError(t, m.Set(ctx, "a", sampleResult(t, "a"), time.Hour))
	require.NoError(t, m.Set(ctx, "b", sampleResult(t, "b"), time.Hour))
	require.NoError(t, m.Set(ctx, "a", sampleResult(t, "a2"), time.Hour))

	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemory_InvalidTTL(t *testing.T) {
	m := NewMemory()

	err := m.Set(context.Background(), "k", sampleResult(t, "k"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestMemory_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a", sampleResult(t, "a"), time.Hour))
	require.NoError(t, m.Set(ctx, "b", sampleResult(t, "b"), time.Hour))

	require.NoError(t, m.Delete(ctx, "a"))
	ok, _ := m.Has(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, m.Clear(ctx))
	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
