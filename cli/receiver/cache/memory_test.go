package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	m := NewMemory()
	m.Now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, "a", "1", 30*time.Second))
	require.NoError(t, m.Set(ctx, "b", "2", 0))

	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	current = current.Add(30 * time.Second)

	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok, "запись должна истечь ровно через ttl")

	v, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestMemorySetRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	current := time.Unix(0, 0)

	m := NewMemory()
	m.Now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, "k", "v", 10*time.Second))
	current = current.Add(8 * time.Second)
	require.NoError(t, m.Set(ctx, "k", "v", 10*time.Second))
	current = current.Add(8 * time.Second)

	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryDel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, m.Del(ctx, "k"))
	require.NoError(t, m.Del(ctx, "missing"))

	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}
