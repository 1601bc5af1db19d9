package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/scorer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moltmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Match.DefaultLimit())
	assert.Equal(t, 20, cfg.Match.MaxLimit())
	assert.Equal(t, 100, cfg.Match.PoolSize())
	assert.Equal(t, 2*time.Second, cfg.Match.DefaultTimeout())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
store:
  backend: redis
  redis:
    addr: "redis:6379"
    db: 2
match:
  max_limit: 10
  pool_size: 50
  timeout: 750ms
  metric: cosine
  eligibility: "size(candidate.dims) >= 2"
  weights:
    default: 1
    by_prefix:
      "interests.": 1.5
moltmatch:
  top_n: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, 10, cfg.Match.Max)
	assert.Equal(t, 5, cfg.Match.Limit, "unset keys keep defaults")
	assert.Equal(t, 50, cfg.Match.Pool)
	assert.Equal(t, 750*time.Millisecond, cfg.Match.Timeout)
	assert.Equal(t, scorer.MetricCosine, cfg.Match.Metric)
	require.NotNil(t, cfg.Match.Weights)
	assert.Equal(t, 1.5, cfg.Match.Weights.For("interests.tech"))
	assert.Equal(t, 3, cfg.MoltMatch.TopN)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
match:
  metric: cosine
`)
	t.Setenv("MOLTMATCH_STORE_BACKEND", "postgres")
	t.Setenv("MOLTMATCH_STORE_POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("MOLTMATCH_MATCH_METRIC", "ratio")
	t.Setenv("MOLTMATCH_MATCH_TIMEOUT", "3s")
	t.Setenv("MOLTMATCH_MATCH_STRICT_IDS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Store.Postgres.DSN)
	assert.Equal(t, scorer.MetricRatio, cfg.Match.Metric)
	assert.Equal(t, 3*time.Second, cfg.Match.Timeout)
	assert.True(t, cfg.Match.StrictIDs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"redis without addr", func(c *Config) { c.Store.Backend = BackendRedis; c.Store.Redis.Addr = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }},
		{"zero max limit", func(c *Config) { c.Match.Max = 0 }},
		{"default above max", func(c *Config) { c.Match.Limit = 50 }},
		{"ceiling below max", func(c *Config) { c.Match.Ceiling = 10 }},
		{"unknown metric", func(c *Config) { c.Match.Metric = "jaccard" }},
		{"bad smoothing", func(c *Config) { c.Match.Smoothing = 0 }},
		{"autonomy out of range", func(c *Config) { c.MoltMatch.MinAutonomy = 120 }},
		{"top n above max", func(c *Config) { c.MoltMatch.TopN = 21 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err), "error = %v", err)
		})
	}
}

func TestBuild_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Match.Eligibility = "size(candidate.dims) >= 1"

	c, err := Build(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NotNil(t, c.Backend.Seeder)

	require.NoError(t, c.Backend.Seeder.UpsertVector(ctx, core.NewTasteVector("me", map[string]float64{"interests.tech": 80})))
	require.NoError(t, c.Backend.Seeder.UpsertVector(ctx, core.NewTasteVector("you", map[string]float64{"interests.tech": 70})))
	require.NoError(t, c.Backend.Seeder.UpsertVector(ctx, core.NewTasteVector("blocked", map[string]float64{"interests.tech": 80})))
	require.NoError(t, c.Backend.Seeder.Block(ctx, "me", "blocked"))

	got, err := c.Ranker.FindTopMatches(ctx, "me", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "you", got[0].AgentID)

	res, err := c.MoltMatch.Run(ctx, "me", 50)
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.Equal(t, "you", res.Match.Agent2ID)
}

func TestBuild_InvalidEligibility(t *testing.T) {
	cfg := Default()
	cfg.Match.Eligibility = "candidate.("
	_, err := Build(context.Background(), cfg)
	assert.True(t, core.IsInvalidInput(err), "error = %v", err)
}

func TestSupportedBackends(t *testing.T) {
	assert.Equal(t, []string{BackendMemory, BackendPostgres, BackendRedis}, SupportedBackends())
}
