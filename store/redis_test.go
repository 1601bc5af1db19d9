package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeol/moltmatch/core"
)

// 需要真实 Redis：REDIS_ADDR=localhost:6379 go test ./store/...
func newRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r, err := NewRedisStore(context.Background(), addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisStore_KeyValue(t *testing.T) {
	ctx := context.Background()
	r := newRedis(t)
	key := "moltmatch:test:" + t.Name()
	t.Cleanup(func() { _ = r.Delete(ctx, key) })

	_, err := r.Get(ctx, key)
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, r.Set(ctx, key, []byte("v"), 60))
	got, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestRedisStore_TasteVectors(t *testing.T) {
	ctx := context.Background()
	r := newRedis(t)
	s := NewKVTasteVectorStore(r)
	s.VectorKey = "moltmatch:test:vectors"
	s.IndexKey = "moltmatch:test:index"
	t.Cleanup(func() {
		_ = r.Delete(ctx, s.VectorKey)
		_ = r.Delete(ctx, s.IndexKey)
	})

	seedVectors(t, s, "a", "b", "me")
	pool, err := s.GetCandidatePool(ctx, "me", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, agentIDs(pool))

	got, err := r.HMGet(ctx, s.VectorKey, "a", "missing")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
