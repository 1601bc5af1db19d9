package match

import (
	"context"
	"fmt"

	"github.com/gyeol/moltmatch/core"
)

// MoltMatch 的默认参数
const (
	DefaultMinAutonomy      = 30
	DefaultMatchedThreshold = 70.0
	DefaultMoltMatchTopN    = 5
)

// SkipReason 说明一次自动匹配为什么没有创建记录。
type SkipReason string

const (
	SkipLowAutonomy SkipReason = "low_autonomy" // 自主度不足
	SkipBusy        SkipReason = "busy"         // 请求方已有进行中的匹配
	SkipNoCandidate SkipReason = "no_candidate" // 没有可匹配的候选
)

// MoltMatchResult 是一次自动匹配的结果；Match 与 Skip 恰有一个非空。
type MoltMatchResult struct {
	Match      *core.MatchRecord     `json:"match,omitempty"`
	Skip       SkipReason            `json:"skip,omitempty"`
	Candidates []core.MatchCandidate `json:"candidates,omitempty"`
}

// Summary 返回一行可读的结果描述。
func (r *MoltMatchResult) Summary() string {
	switch {
	case r == nil:
		return ""
	case r.Match != nil:
		return fmt.Sprintf("%s with %s (compatibility %.0f%%)", r.Match.Status, r.Match.Agent2ID, r.Match.CompatibilityScore)
	default:
		return "skipped: " + string(r.Skip)
	}
}

// MoltMatcher 在心跳中为 agent 自动挑选并记录一个匹配对象。
//
// 流程：自主度检查 → 请求方是否已有进行中的匹配 → 排序取 Top-N →
// 选第一个没有进行中匹配的候选 → 分数达到阈值记为 matched，否则 pending。
// 所有写入都经由 MatchWriter。
type MoltMatcher struct {
	Ranker  *Ranker
	Matches core.MatchWriter

	MinAutonomy      int
	MatchedThreshold float64
	TopN             int
}

func NewMoltMatcher(ranker *Ranker, matches core.MatchWriter) *MoltMatcher {
	return &MoltMatcher{
		Ranker:           ranker,
		Matches:          matches,
		MinAutonomy:      DefaultMinAutonomy,
		MatchedThreshold: DefaultMatchedThreshold,
		TopN:             DefaultMoltMatchTopN,
	}
}

// Run 执行一次自动匹配。autonomy 取值 0-100。
func (m *MoltMatcher) Run(ctx context.Context, agentID string, autonomy int) (*MoltMatchResult, error) {
	if autonomy < 0 || autonomy > 100 {
		return nil, core.ErrInvalidInput(fmt.Sprintf("autonomy level must be within [0, 100], got %d", autonomy))
	}
	if err := core.ValidateAgentID(agentID, m.Ranker.StrictIDs); err != nil {
		return nil, err
	}
	if autonomy < m.MinAutonomy {
		return &MoltMatchResult{Skip: SkipLowAutonomy}, nil
	}

	busy, err := m.Matches.HasActiveMatch(ctx, agentID)
	if err != nil {
		return nil, core.ErrUpstreamUnavailable("active match", err)
	}
	if busy {
		return &MoltMatchResult{Skip: SkipBusy}, nil
	}

	candidates, err := m.Ranker.FindTopMatches(ctx, agentID, m.TopN)
	if err != nil {
		return nil, err
	}
	result := &MoltMatchResult{Candidates: candidates}

	for _, c := range candidates {
		taken, err := m.Matches.HasActiveMatch(ctx, c.AgentID)
		if err != nil {
			return nil, core.ErrUpstreamUnavailable("active match", err)
		}
		if taken {
			continue
		}
		rec := core.MatchRecord{
			Agent1ID:           agentID,
			Agent2ID:           c.AgentID,
			CompatibilityScore: c.CompatibilityScore,
			Status:             core.MatchStatusPending,
		}
		if c.CompatibilityScore >= m.MatchedThreshold {
			rec.Status = core.MatchStatusMatched
		}
		if err := m.Matches.CreateMatch(ctx, rec); err != nil {
			return nil, core.ErrUpstreamUnavailable("create match", err)
		}
		result.Match = &rec
		return result, nil
	}

	result.Skip = SkipNoCandidate
	return result, nil
}
