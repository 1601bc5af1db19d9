// Package rank 提供打分节点：为每个候选计算与请求方的兼容度。
package rank

import (
	"context"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pipeline"
	"github.com/gyeol/moltmatch/pkg/utils"
	"github.com/gyeol/moltmatch/scorer"
)

// CompatibilityNode 用 Scorer 给每个候选打分。
//   - 写入 item.Score
//   - 写入 labels：match_metric
//
// 不排序，排序交给 rerank.SortNode。
type CompatibilityNode struct {
	// Scorer 为 nil 时使用 scorer.Default()
	Scorer scorer.Scorer
}

func (n *CompatibilityNode) Name() string        { return "rank.compatibility" }
func (n *CompatibilityNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *CompatibilityNode) Process(
	_ context.Context,
	mctx *core.MatchContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if mctx == nil || mctx.Vector == nil {
		agentID := ""
		if mctx != nil {
			agentID = mctx.AgentID
		}
		return nil, core.ErrNoProfileSignal(agentID)
	}
	s := n.Scorer
	if s == nil {
		s = scorer.Default()
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		it.Score = s.Score(mctx.Vector, it.Vector)
		it.PutLabel(utils.LabelMatchMetric, utils.NewLabel(s.Name(), "rank"))
	}
	return items, nil
}
