package filter

import (
	"context"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/pkg/dsl"
	"github.com/gyeol/moltmatch/pkg/utils"
)

// ExprFilter 用 CEL 表达式描述候选资格，表达式为 false 的候选被移除。
// 它只能进一步缩小候选集合，不会放回已排除的候选。
// 对某个候选求值出错（例如读取了它没有的维度）时，只移除该候选并打上
// filter.expr:error 标签，不会让整次排序失败。
//
// 示例：
//
//	candidate.age_hours < 720.0 && size(candidate.dims) >= 3
type ExprFilter struct {
	Program *dsl.Program
}

// NewExprFilter 编译表达式；表达式为空时返回 nil。
func NewExprFilter(expr string) (*ExprFilter, error) {
	if expr == "" {
		return nil, nil
	}
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFilter, core.ErrorCodeInvalidInput, "filter: invalid eligibility expression", err)
	}
	return &ExprFilter{Program: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	ctx context.Context,
	mctx *core.MatchContext,
	item *core.Item,
) (bool, error) {
	if f.Program == nil || item == nil {
		return false, nil
	}
	ok, err := f.Program.Eval(ctx, mctx, item)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		item.PutLabel(utils.LabelFiltered, utils.NewLabel("error", f.Name()+":error"))
		return true, nil
	}
	return !ok, nil
}
