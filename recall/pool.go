package recall

import (
	"context"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pipeline"
	"github.com/gyeol/moltmatch/pkg/utils"
)

// PoolRecall 是一个 Recall Node：把本次请求读到的候选池（MatchContext.Pool）转为 Item。
//
// 候选池由外部存储读取，这里不再访问存储；
// 同一 agent 重复出现时保留第一个（存储应保证唯一，这里只做兜底）。
type PoolRecall struct{}

func (n *PoolRecall) Name() string        { return "recall.pool" }
func (n *PoolRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *PoolRecall) Process(
	_ context.Context,
	mctx *core.MatchContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if mctx == nil || len(mctx.Pool) == 0 {
		return []*core.Item{}, nil
	}

	seen := make(map[string]struct{}, len(mctx.Pool))
	out := make([]*core.Item, 0, len(mctx.Pool))
	for _, v := range mctx.Pool {
		if v == nil || v.AgentID == "" {
			continue
		}
		if _, ok := seen[v.AgentID]; ok {
			continue
		}
		seen[v.AgentID] = struct{}{}
		it := core.NewItemFromVector(v)
		it.PutLabel(utils.LabelRecallSource, utils.NewLabel("pool", "recall"))
		out = append(out, it)
	}
	return out, nil
}
