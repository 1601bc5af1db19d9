package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeol/moltmatch/core"
)

func newMemory(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	_, err := m.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Batch(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	got, err := m.BatchGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)
}

func TestMemoryStore_ZRange(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.ZAdd(ctx, "z", 1, "low"))
	require.NoError(t, m.ZAdd(ctx, "z", 3, "high"))
	require.NoError(t, m.ZAdd(ctx, "z", 2, "b"))
	require.NoError(t, m.ZAdd(ctx, "z", 2, "a"))

	all, err := m.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "b", "a", "low"}, all)

	top, err := m.ZRange(ctx, "z", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "b"}, top)

	past, err := m.ZRange(ctx, "z", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, past)

	require.NoError(t, m.ZRem(ctx, "z", "high"))
	_, err = m.ZScore(ctx, "z", "high")
	assert.True(t, core.IsStoreNotFound(err))

	score, err := m.ZScore(ctx, "z", "low")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.HSet(ctx, "h", "f1", []byte("1")))
	require.NoError(t, m.HSet(ctx, "h", "f2", []byte("2")))

	v, err := m.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	got, err := m.HMGet(ctx, "h", "f1", "f2", "f3")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, m.HDel(ctx, "h", "f1"))
	_, err = m.HGet(ctx, "h", "f1")
	assert.True(t, core.IsStoreNotFound(err))

	// 普通 key 与 hash 不互相覆盖
	require.NoError(t, m.Set(ctx, "h", []byte("plain")))
	v, err = m.HGet(ctx, "h", "f2")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	m := NewMemoryStore()
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
