package config

import (
	"context"
	"fmt"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/filter"
	"github.com/gyeol/moltmatch/match"
	"github.com/gyeol/moltmatch/scorer"
	"github.com/gyeol/moltmatch/store"
)

func init() {
	RegisterBackend(BackendMemory, buildMemoryBackend)
	RegisterBackend(BackendRedis, buildRedisBackend)
	RegisterBackend(BackendPostgres, buildPostgresBackend)
}

// Components 是按配置组装好的匹配服务。
type Components struct {
	Backend   *Backend
	Ranker    *match.Ranker
	MoltMatch *match.MoltMatcher
}

// Close 释放存储连接。
func (c *Components) Close() error {
	if c == nil || c.Backend == nil || c.Backend.Close == nil {
		return nil
	}
	return c.Backend.Close()
}

// Build 打开存储后端并组装 Ranker 与 MoltMatcher。
func Build(ctx context.Context, cfg *Config) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	builder, ok := lookupBackend(cfg.Store.Backend)
	if !ok {
		return nil, fmt.Errorf("unknown store backend %q (supported: %v)", cfg.Store.Backend, SupportedBackends())
	}
	backend, err := builder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Store.Backend, err)
	}

	ranker, err := NewRanker(cfg, backend.Vectors, backend.Relations)
	if err != nil {
		if backend.Close != nil {
			_ = backend.Close()
		}
		return nil, err
	}

	molt := match.NewMoltMatcher(ranker, backend.Matches)
	molt.MinAutonomy = cfg.MoltMatch.MinAutonomy
	molt.MatchedThreshold = cfg.MoltMatch.MatchedThreshold
	molt.TopN = cfg.MoltMatch.TopN

	return &Components{Backend: backend, Ranker: ranker, MoltMatch: molt}, nil
}

// NewRanker 按 match 配置创建 Ranker。
func NewRanker(cfg *Config, vectors core.TasteVectorStore, relations core.RelationshipFilter) (*match.Ranker, error) {
	s, err := scorer.New(cfg.Match.Metric, cfg.ScorerOptions()...)
	if err != nil {
		return nil, err
	}
	eligibility, err := filter.NewExprFilter(cfg.Match.Eligibility)
	if err != nil {
		return nil, err
	}

	r := match.NewRanker(vectors, relations, cfg.Match)
	r.Scorer = s
	r.Eligibility = eligibility
	r.StrictIDs = cfg.Match.StrictIDs
	return r, nil
}

// kvSeeder 把 KV 后端适配为 Seeder。
type kvSeeder struct {
	vectors   *store.KVTasteVectorStore
	relations *filter.StoreAdapter
}

func (s *kvSeeder) ValidateVector(v *core.TasteVector) error {
	return v.Validate()
}

func (s *kvSeeder) UpsertVector(ctx context.Context, v *core.TasteVector) error {
	return s.vectors.Upsert(ctx, v)
}

func (s *kvSeeder) Block(ctx context.Context, blockerID, blockedID string) error {
	return s.relations.Block(ctx, blockerID, blockedID)
}

func kvBackend(kv core.KeyValueStore, cfg *Config) *Backend {
	vectors := store.NewKVTasteVectorStore(kv)
	relations := filter.NewStoreAdapter(kv)
	relations.Bidirectional = !cfg.Store.OneWayBlocks
	return &Backend{
		Vectors:   vectors,
		Relations: relations,
		Matches:   relations,
		Seeder:    &kvSeeder{vectors: vectors, relations: relations},
		Close:     kv.Close,
	}
}

func buildMemoryBackend(_ context.Context, cfg *Config) (*Backend, error) {
	return kvBackend(store.NewMemoryStore(), cfg), nil
}

func buildRedisBackend(ctx context.Context, cfg *Config) (*Backend, error) {
	r := cfg.Store.Redis
	kv, err := store.NewRedisStore(ctx, r.Addr, r.Password, r.DB)
	if err != nil {
		return nil, err
	}
	return kvBackend(kv, cfg), nil
}

// pgSeeder 把 PostgresStore 适配为 Seeder。
type pgSeeder struct{ *store.PostgresStore }

func (s pgSeeder) ValidateVector(v *core.TasteVector) error {
	return s.ValidateTasteVector(v)
}

func (s pgSeeder) UpsertVector(ctx context.Context, v *core.TasteVector) error {
	return s.UpsertTasteVector(ctx, v)
}

func buildPostgresBackend(ctx context.Context, cfg *Config) (*Backend, error) {
	pg, err := store.OpenPostgresStore(ctx, cfg.Store.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Postgres.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}
	pg.Bidirectional = !cfg.Store.OneWayBlocks
	return &Backend{
		Vectors:   pg,
		Relations: pg,
		Matches:   pg,
		Seeder:    pgSeeder{pg},
		Close:     pg.Close,
	}, nil
}
