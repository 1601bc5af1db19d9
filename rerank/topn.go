package rerank

import (
	"context"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，放在 SortNode 之后，截取前 N 个候选。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.CompatibilityNode{},
//	        &rerank.SortNode{},
//	        &rerank.TopNNode{N: 5},
//	    },
//	}
type TopNNode struct {
	// N 要保留的候选数量
	// 如果 N <= 0，则返回所有候选（不截断）；请求 limit 为 0 的情况由调用方在进入 Pipeline 前处理
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.MatchContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
