package pipeline

import (
	"context"
	"fmt"

	"github.com/gyeol/moltmatch/core"
)

// Pipeline 把匹配逻辑拆成可组合的 Node 链：Recall → Filter → Rank → ReRank。
type Pipeline struct {
	Nodes []Node
}

// Run 顺序执行所有 Node。任一 Node 出错立即返回，不产生部分结果；
// 每个 Node 之前检查 ctx，调用方取消后尽快退出。
func (p *Pipeline) Run(
	ctx context.Context,
	mctx *core.MatchContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, mctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// Stages 返回各 Node 的名称，用于日志/explain。
func (p *Pipeline) Stages() []string {
	out := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		out = append(out, string(n.Kind())+":"+n.Name())
	}
	return out
}
