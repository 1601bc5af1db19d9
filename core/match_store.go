package core

import "context"

// TasteVectorStore 是取向向量存储的领域接口（外部协作方，只读）。
//
// 实现：
//   - store.KVTasteVectorStore（基于 KeyValueStore：memory / redis）
//   - store.PostgresStore（gyeol_taste_vectors 表）
type TasteVectorStore interface {
	// GetTasteVector 按 agent id 读取向量；不存在时返回 (nil, nil)
	GetTasteVector(ctx context.Context, agentID string) (*TasteVector, error)

	// GetCandidatePool 读取至多 maxCount 个其他 agent 的向量。
	// 结果不包含 excludeAgentID，但可能包含其他需要再过滤的 id。
	GetCandidatePool(ctx context.Context, excludeAgentID string, maxCount int) ([]*TasteVector, error)
}

// RelationshipFilter 提供某个 agent 的排除集合（拉黑、已匹配/聊天中）。
// 拉黑是否双向由实现决定，core 只消费结果。
type RelationshipFilter interface {
	GetExclusionSet(ctx context.Context, agentID string) (ExclusionSet, error)
}

// MatchStatus 是匹配记录的状态。
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusMatched  MatchStatus = "matched"
	MatchStatusChatting MatchStatus = "chatting"
	MatchStatusEnded    MatchStatus = "ended"
)

// Active 表示该状态是否占用 agent（pending / matched / chatting）。
func (s MatchStatus) Active() bool {
	switch s {
	case MatchStatusPending, MatchStatusMatched, MatchStatusChatting:
		return true
	default:
		return false
	}
}

// MatchRecord 是一条匹配记录。
type MatchRecord struct {
	Agent1ID           string      `json:"agent1Id"`
	Agent2ID           string      `json:"agent2Id"`
	CompatibilityScore float64     `json:"compatibilityScore"`
	Status             MatchStatus `json:"status"`
}

// MatchWriter 是自动匹配（MoltMatch）使用的写接口，core 排序本身不写。
type MatchWriter interface {
	// HasActiveMatch 检查 agent 是否处于 pending / matched / chatting 匹配中
	HasActiveMatch(ctx context.Context, agentID string) (bool, error)

	// CreateMatch 写入一条匹配记录
	CreateMatch(ctx context.Context, rec MatchRecord) error
}
