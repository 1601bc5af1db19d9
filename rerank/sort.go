// Package rerank 提供排序后的确定性重排与截断节点。
package rerank

import (
	"context"
	"sort"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pipeline"
)

// SortNode 按分数降序排序，同分按 ID 升序，保证同样的输入总是同样的输出。
// nil 项被移除。
type SortNode struct{}

func (n *SortNode) Name() string        { return "rerank.sort" }
func (n *SortNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *SortNode) Process(
	_ context.Context,
	_ *core.MatchContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
