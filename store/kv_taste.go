package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gyeol/moltmatch/core"
)

// 默认 key：向量 Hash 与按更新时间排序的候选池索引
const (
	DefaultVectorHashKey = "taste:vectors"
	DefaultVectorIndex   = "taste:index"
)

// KVTasteVectorStore 在 core.KeyValueStore 之上实现 core.TasteVectorStore。
//
// 布局：
//   - Hash {VectorKey}: agentID -> TasteVector JSON
//   - ZSet {IndexKey}:  agentID -> UpdatedAt（毫秒），候选池按最近更新优先
//
// 两个结构分开写入，读取时跳过索引里存在但 Hash 中缺失的成员。
type KVTasteVectorStore struct {
	kv core.KeyValueStore

	VectorKey string
	IndexKey  string

	// Now 用于为没有 UpdatedAt 的向量补时间，测试可替换
	Now func() time.Time
}

func NewKVTasteVectorStore(kv core.KeyValueStore) *KVTasteVectorStore {
	return &KVTasteVectorStore{
		kv:        kv,
		VectorKey: DefaultVectorHashKey,
		IndexKey:  DefaultVectorIndex,
		Now:       time.Now,
	}
}

// GetTasteVector 实现 core.TasteVectorStore；不存在时返回 (nil, nil)。
func (s *KVTasteVectorStore) GetTasteVector(ctx context.Context, agentID string) (*core.TasteVector, error) {
	data, err := s.kv.HGet(ctx, s.VectorKey, agentID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeVector(agentID, data)
}

// GetCandidatePool 实现 core.TasteVectorStore：最近更新的至多 maxCount 个向量，不含 excludeID。
func (s *KVTasteVectorStore) GetCandidatePool(ctx context.Context, excludeID string, maxCount int) ([]*core.TasteVector, error) {
	if maxCount <= 0 {
		return []*core.TasteVector{}, nil
	}
	// 多取一个，被排除的请求方不占名额
	members, err := s.kv.ZRange(ctx, s.IndexKey, 0, int64(maxCount))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, id := range members {
		if id == excludeID {
			continue
		}
		if len(ids) == maxCount {
			break
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []*core.TasteVector{}, nil
	}

	raw, err := s.kv.HMGet(ctx, s.VectorKey, ids...)
	if err != nil {
		return nil, err
	}
	pool := make([]*core.TasteVector, 0, len(ids))
	for _, id := range ids {
		data, ok := raw[id]
		if !ok {
			continue
		}
		v, err := decodeVector(id, data)
		if err != nil {
			return nil, err
		}
		pool = append(pool, v)
	}
	return pool, nil
}

// Upsert 写入（或覆盖）一个向量并更新索引。
func (s *KVTasteVectorStore) Upsert(ctx context.Context, v *core.TasteVector) error {
	if err := v.Validate(); err != nil {
		return err
	}
	v = v.Clone()
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = s.Now()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.kv.HSet(ctx, s.VectorKey, v.AgentID, data); err != nil {
		return err
	}
	return s.kv.ZAdd(ctx, s.IndexKey, float64(v.UpdatedAt.UnixMilli()), v.AgentID)
}

// Delete 删除向量及其索引项（账号注销时使用）。
func (s *KVTasteVectorStore) Delete(ctx context.Context, agentID string) error {
	if err := s.kv.ZRem(ctx, s.IndexKey, agentID); err != nil {
		return err
	}
	return s.kv.HDel(ctx, s.VectorKey, agentID)
}

func decodeVector(agentID string, data []byte) (*core.TasteVector, error) {
	var v core.TasteVector
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode taste vector %q: %w", agentID, err)
	}
	if v.AgentID == "" {
		v.AgentID = agentID
	}
	if v.Dimensions == nil {
		v.Dimensions = make(map[string]float64)
	}
	return &v, nil
}

var _ core.TasteVectorStore = (*KVTasteVectorStore)(nil)
