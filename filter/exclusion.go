package filter

import (
	"context"

	"github.com/gyeol/moltmatch/core"
)

// ExclusionFilter 过滤请求方自身以及 MatchContext.Exclusions 中的 agent。
type ExclusionFilter struct{}

func (f *ExclusionFilter) Name() string {
	return "filter.exclusion"
}

func (f *ExclusionFilter) ShouldFilter(
	_ context.Context,
	mctx *core.MatchContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return mctx.IsExcluded(item.ID), nil
}
