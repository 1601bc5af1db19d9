package filter

import (
	"context"
	"fmt"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pipeline"
	"github.com/gyeol/moltmatch/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器。
// 任何一个过滤器返回 true，该候选就会被移除。
// 过滤器出错时整个 Node 失败：无法判断是否应排除的候选不能被放行。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	mctx *core.MatchContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		filtered := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, mctx, item)
			if err != nil {
				return nil, fmt.Errorf("%s on %q: %w", f.Name(), item.ID, err)
			}
			if ok {
				filtered = true
				item.PutLabel(utils.LabelFiltered, utils.NewLabel("true", f.Name()))
				break
			}
		}

		if !filtered {
			out = append(out, item)
		}
	}

	return out, nil
}
