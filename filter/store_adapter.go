package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/gyeol/moltmatch/core"
)

// 默认 key 前缀，实际 key 为 {prefix}:{agentID}
const (
	DefaultBlockPrefix     = "agent:block"
	DefaultBlockedByPrefix = "agent:blocked_by"
	DefaultMatchPrefix     = "agent:match"
)

// partnerEntry 是 {MatchPrefix}:{agentID} 列表中的一项。
type partnerEntry struct {
	AgentID            string           `json:"agentId"`
	Status             core.MatchStatus `json:"status"`
	CompatibilityScore float64          `json:"compatibilityScore"`
}

// StoreAdapter 把 core.Store 适配为关系存储：拉黑列表与匹配对象列表以 JSON 形式保存。
//
// 它实现：
//   - core.RelationshipFilter：排除集合 = 我拉黑的 + （双向时）拉黑我的 + matched/chatting 中的对象
//   - core.MatchWriter：自动匹配写入
//
// 写操作是“读-改-写”，进程内用互斥锁串行化；多实例并发写同一 agent 时以最后一次为准。
type StoreAdapter struct {
	store core.Store

	BlockPrefix     string
	BlockedByPrefix string
	MatchPrefix     string

	// Bidirectional 为 true 时，拉黑我的 agent 也被排除
	Bidirectional bool

	mu sync.Mutex
}

// NewStoreAdapter 创建一个 core.Store 适配器，默认双向拉黑。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{
		store:           s,
		BlockPrefix:     DefaultBlockPrefix,
		BlockedByPrefix: DefaultBlockedByPrefix,
		MatchPrefix:     DefaultMatchPrefix,
		Bidirectional:   true,
	}
}

func key(prefix, agentID string) string {
	return prefix + ":" + agentID
}

// getJSON 读取并解码；key 不存在时保持 out 为零值。
func (a *StoreAdapter) getJSON(ctx context.Context, k string, out any) error {
	data, err := a.store.Get(ctx, k)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", k, err)
	}
	return nil
}

func (a *StoreAdapter) setJSON(ctx context.Context, k string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, k, data)
}

// GetBlocks 读取 agent 拉黑的 id 列表。
func (a *StoreAdapter) GetBlocks(ctx context.Context, agentID string) ([]string, error) {
	var ids []string
	if err := a.getJSON(ctx, key(a.BlockPrefix, agentID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetBlockedBy 读取拉黑了 agent 的 id 列表。
func (a *StoreAdapter) GetBlockedBy(ctx context.Context, agentID string) ([]string, error) {
	var ids []string
	if err := a.getJSON(ctx, key(a.BlockedByPrefix, agentID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *StoreAdapter) getPartners(ctx context.Context, agentID string) ([]partnerEntry, error) {
	var entries []partnerEntry
	if err := a.getJSON(ctx, key(a.MatchPrefix, agentID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetExclusionSet 实现 core.RelationshipFilter。
func (a *StoreAdapter) GetExclusionSet(ctx context.Context, agentID string) (core.ExclusionSet, error) {
	set := core.NewExclusionSet(agentID)

	blocks, err := a.GetBlocks(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, id := range blocks {
		set.Add(id)
	}

	if a.Bidirectional {
		blockedBy, err := a.GetBlockedBy(ctx, agentID)
		if err != nil {
			return nil, err
		}
		for _, id := range blockedBy {
			set.Add(id)
		}
	}

	partners, err := a.getPartners(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, p := range partners {
		if p.Status == core.MatchStatusMatched || p.Status == core.MatchStatusChatting {
			set.Add(p.AgentID)
		}
	}
	return set, nil
}

// HasActiveMatch 实现 core.MatchWriter。
func (a *StoreAdapter) HasActiveMatch(ctx context.Context, agentID string) (bool, error) {
	partners, err := a.getPartners(ctx, agentID)
	if err != nil {
		return false, err
	}
	for _, p := range partners {
		if p.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

// CreateMatch 实现 core.MatchWriter：双方的匹配列表各写入一项，已存在则更新。
func (a *StoreAdapter) CreateMatch(ctx context.Context, rec core.MatchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.upsertPartner(ctx, rec.Agent1ID, partnerEntry{
		AgentID: rec.Agent2ID, Status: rec.Status, CompatibilityScore: rec.CompatibilityScore,
	}); err != nil {
		return err
	}
	return a.upsertPartner(ctx, rec.Agent2ID, partnerEntry{
		AgentID: rec.Agent1ID, Status: rec.Status, CompatibilityScore: rec.CompatibilityScore,
	})
}

func (a *StoreAdapter) upsertPartner(ctx context.Context, agentID string, e partnerEntry) error {
	entries, err := a.getPartners(ctx, agentID)
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].AgentID == e.AgentID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return a.setJSON(ctx, key(a.MatchPrefix, agentID), entries)
}

// Block 记录 blocker 拉黑 blocked，并删除两人之间的匹配记录。
func (a *StoreAdapter) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return core.ErrInvalidInput("cannot block self")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.addToList(ctx, key(a.BlockPrefix, blockerID), blockedID); err != nil {
		return err
	}
	if err := a.addToList(ctx, key(a.BlockedByPrefix, blockedID), blockerID); err != nil {
		return err
	}
	if err := a.removePartner(ctx, blockerID, blockedID); err != nil {
		return err
	}
	return a.removePartner(ctx, blockedID, blockerID)
}

// Unblock 撤销拉黑。
func (a *StoreAdapter) Unblock(ctx context.Context, blockerID, blockedID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.removeFromList(ctx, key(a.BlockPrefix, blockerID), blockedID); err != nil {
		return err
	}
	return a.removeFromList(ctx, key(a.BlockedByPrefix, blockedID), blockerID)
}

func (a *StoreAdapter) addToList(ctx context.Context, k, id string) error {
	var ids []string
	if err := a.getJSON(ctx, k, &ids); err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	sort.Strings(ids)
	return a.setJSON(ctx, k, ids)
}

func (a *StoreAdapter) removeFromList(ctx context.Context, k, id string) error {
	var ids []string
	if err := a.getJSON(ctx, k, &ids); err != nil {
		return err
	}
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return a.setJSON(ctx, k, out)
}

func (a *StoreAdapter) removePartner(ctx context.Context, agentID, partnerID string) error {
	entries, err := a.getPartners(ctx, agentID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	out := entries[:0]
	for _, e := range entries {
		if e.AgentID != partnerID {
			out = append(out, e)
		}
	}
	return a.setJSON(ctx, key(a.MatchPrefix, agentID), out)
}

// 确保实现了接口
var (
	_ core.RelationshipFilter = (*StoreAdapter)(nil)
	_ core.MatchWriter        = (*StoreAdapter)(nil)
)
