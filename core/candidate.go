package core

// MatchCandidate 是一次排序调用的输出项，不持久化。
// CompatibilityScore 只由两个输入向量决定。
type MatchCandidate struct {
	AgentID            string  `json:"agentId"`
	CompatibilityScore float64 `json:"compatibilityScore"`
}

// CandidatesFromItems 把排好序的 Item 转换为输出结构，保持顺序。
func CandidatesFromItems(items []*Item) []MatchCandidate {
	out := make([]MatchCandidate, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, MatchCandidate{AgentID: it.ID, CompatibilityScore: it.Score})
	}
	return out
}
