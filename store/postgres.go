package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pkg/conv"
)

// PostgresSchema 创建匹配所需的三张表；Migrate 会执行它，重复执行无副作用。
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS gyeol_taste_vectors (
	agent_id            TEXT PRIMARY KEY,
	interests           JSONB NOT NULL DEFAULT '{}',
	topics              JSONB NOT NULL DEFAULT '{}',
	communication_style JSONB NOT NULL DEFAULT '{}',
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS gyeol_taste_vectors_updated_at_idx
	ON gyeol_taste_vectors (updated_at DESC, agent_id);

CREATE TABLE IF NOT EXISTS gyeol_blocks (
	blocker_agent_id TEXT NOT NULL,
	blocked_agent_id TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (blocker_agent_id, blocked_agent_id)
);
CREATE INDEX IF NOT EXISTS gyeol_blocks_blocked_idx ON gyeol_blocks (blocked_agent_id);

CREATE TABLE IF NOT EXISTS gyeol_moltmatch_matches (
	id                  BIGSERIAL PRIMARY KEY,
	agent_1_id          TEXT NOT NULL,
	agent_2_id          TEXT NOT NULL,
	compatibility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'matched', 'chatting', 'ended')),
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (agent_1_id, agent_2_id)
);
CREATE INDEX IF NOT EXISTS gyeol_moltmatch_matches_agent_2_idx ON gyeol_moltmatch_matches (agent_2_id);
`

// 向量按分组存为三列 JSONB
var vectorGroups = []string{core.GroupInterests, core.GroupTopics, core.GroupCommunicationStyle}

// PostgresStore 在关系库上实现 core.TasteVectorStore、core.RelationshipFilter 与 core.MatchWriter。
type PostgresStore struct {
	db *sql.DB

	// Bidirectional 为 true 时，拉黑我的 agent 也被排除
	Bidirectional bool
}

// OpenPostgresStore 打开连接池并 Ping 一次。
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable,
			"store: postgres ping", errors.Wrap(err, "failed to ping database"))
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore 包装已有连接池，默认双向拉黑。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, Bidirectional: true}
}

func (p *PostgresStore) Name() string { return "postgres" }

func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Close() error { return p.db.Close() }

// Migrate 创建表与索引。
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, PostgresSchema); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}

const selectVector = `SELECT agent_id, interests, topics, communication_style, updated_at FROM gyeol_taste_vectors`

// GetTasteVector 实现 core.TasteVectorStore；不存在时返回 (nil, nil)。
func (p *PostgresStore) GetTasteVector(ctx context.Context, agentID string) (*core.TasteVector, error) {
	row := p.db.QueryRowContext(ctx, selectVector+` WHERE agent_id = $1`, agentID)
	v, err := scanVector(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get taste vector")
	}
	return v, nil
}

// GetCandidatePool 实现 core.TasteVectorStore：最近更新优先，同一时间按 agent_id 升序。
func (p *PostgresStore) GetCandidatePool(ctx context.Context, excludeID string, maxCount int) ([]*core.TasteVector, error) {
	if maxCount <= 0 {
		return []*core.TasteVector{}, nil
	}
	rows, err := p.db.QueryContext(ctx,
		selectVector+` WHERE agent_id <> $1 ORDER BY updated_at DESC, agent_id ASC LIMIT $2`,
		excludeID, maxCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list candidate pool")
	}
	defer rows.Close()

	pool := make([]*core.TasteVector, 0, maxCount)
	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan taste vector")
		}
		pool = append(pool, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate candidate pool")
	}
	return pool, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVector(row rowScanner) (*core.TasteVector, error) {
	var (
		id                           string
		interests, topics, commStyle []byte
		updatedAt                    time.Time
	)
	if err := row.Scan(&id, &interests, &topics, &commStyle, &updatedAt); err != nil {
		return nil, err
	}
	groups := make(map[string]map[string]float64, len(vectorGroups))
	for i, raw := range [][]byte{interests, topics, commStyle} {
		dims, err := decodeGroup(raw)
		if err != nil {
			return nil, fmt.Errorf("agent %q %s: %w", id, vectorGroups[i], err)
		}
		groups[vectorGroups[i]] = dims
	}
	v := core.NewTasteVector(id, core.FlattenGroups(groups))
	v.UpdatedAt = updatedAt
	return v, nil
}

// decodeGroup 解码一列 JSONB；非数值项被跳过。
func decodeGroup(raw []byte) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return conv.MapToFloat64(m), nil
}

// ValidateTasteVector 检查向量能否写入：除 TasteVector.Validate 外，
// 维度名必须带有三个分组之一的前缀。
func (p *PostgresStore) ValidateTasteVector(v *core.TasteVector) error {
	if err := v.Validate(); err != nil {
		return err
	}
	groups := v.Groups()
	known := 0
	for _, g := range vectorGroups {
		known += len(groups[g])
	}
	if known != v.Len() {
		return core.ErrInvalidInput(fmt.Sprintf("agent %q: dimensions must be prefixed with %v", v.AgentID, vectorGroups))
	}
	return nil
}

// UpsertTasteVector 写入向量，校验规则见 ValidateTasteVector。
func (p *PostgresStore) UpsertTasteVector(ctx context.Context, v *core.TasteVector) error {
	if err := p.ValidateTasteVector(v); err != nil {
		return err
	}
	groups := v.Groups()
	cols := make([][]byte, len(vectorGroups))
	for i, g := range vectorGroups {
		dims := groups[g]
		if dims == nil {
			dims = map[string]float64{}
		}
		data, err := json.Marshal(dims)
		if err != nil {
			return err
		}
		cols[i] = data
	}
	updatedAt := v.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO gyeol_taste_vectors (agent_id, interests, topics, communication_style, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (agent_id) DO UPDATE SET
			interests = EXCLUDED.interests,
			topics = EXCLUDED.topics,
			communication_style = EXCLUDED.communication_style,
			updated_at = EXCLUDED.updated_at`,
		v.AgentID, cols[0], cols[1], cols[2], updatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to upsert taste vector")
	}
	return nil
}

// GetExclusionSet 实现 core.RelationshipFilter。
func (p *PostgresStore) GetExclusionSet(ctx context.Context, agentID string) (core.ExclusionSet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT blocked_agent_id FROM gyeol_blocks WHERE blocker_agent_id = $1
		UNION
		SELECT blocker_agent_id FROM gyeol_blocks WHERE blocked_agent_id = $1 AND $2::boolean
		UNION
		SELECT CASE WHEN agent_1_id = $1 THEN agent_2_id ELSE agent_1_id END
		FROM gyeol_moltmatch_matches
		WHERE (agent_1_id = $1 OR agent_2_id = $1) AND status IN ('matched', 'chatting')`,
		agentID, p.Bidirectional)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query exclusion set")
	}
	defer rows.Close()

	set := core.NewExclusionSet(agentID)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan exclusion id")
		}
		set.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate exclusion set")
	}
	return set, nil
}

// HasActiveMatch 实现 core.MatchWriter。
func (p *PostgresStore) HasActiveMatch(ctx context.Context, agentID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM gyeol_moltmatch_matches
			WHERE (agent_1_id = $1 OR agent_2_id = $1) AND status IN ('pending', 'matched', 'chatting')
		)`, agentID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check active match")
	}
	return exists, nil
}

// CreateMatch 实现 core.MatchWriter；同一对 agent 已有记录时更新分数与状态。
func (p *PostgresStore) CreateMatch(ctx context.Context, rec core.MatchRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO gyeol_moltmatch_matches (agent_1_id, agent_2_id, compatibility_score, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (agent_1_id, agent_2_id) DO UPDATE SET
			compatibility_score = EXCLUDED.compatibility_score,
			status = EXCLUDED.status,
			updated_at = now()`,
		rec.Agent1ID, rec.Agent2ID, rec.CompatibilityScore, string(rec.Status))
	if err != nil {
		return errors.Wrap(err, "failed to create match")
	}
	return nil
}

// Block 记录拉黑并删除两人之间的匹配记录。
func (p *PostgresStore) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return core.ErrInvalidInput("cannot block self")
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gyeol_blocks (blocker_agent_id, blocked_agent_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, blockerID, blockedID); err != nil {
		return errors.Wrap(err, "failed to insert block")
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM gyeol_moltmatch_matches
		WHERE (agent_1_id = $1 AND agent_2_id = $2) OR (agent_1_id = $2 AND agent_2_id = $1)`,
		blockerID, blockedID); err != nil {
		return errors.Wrap(err, "failed to delete matches")
	}
	return errors.Wrap(tx.Commit(), "failed to commit block")
}

// Unblock 撤销拉黑。
func (p *PostgresStore) Unblock(ctx context.Context, blockerID, blockedID string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM gyeol_blocks WHERE blocker_agent_id = $1 AND blocked_agent_id = $2`,
		blockerID, blockedID)
	return errors.Wrap(err, "failed to delete block")
}

var (
	_ core.TasteVectorStore   = (*PostgresStore)(nil)
	_ core.RelationshipFilter = (*PostgresStore)(nil)
	_ core.MatchWriter        = (*PostgresStore)(nil)
)
