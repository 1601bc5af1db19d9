// Package dsl 提供候选资格规则的表达式解释器，基于 CEL (Common Expression Language)。
package dsl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/gyeol/moltmatch/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("candidate", cel.DynType),
		cel.Variable("requester", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的资格表达式，可并发复用。
//
// 可用变量：
//   - candidate.id / candidate.dims
//   - candidate.age_hours（无更新时间时为 0）/ candidate.has_updated_at
//   - requester.id / requester.dims
//
// 示例：
//   - `candidate.age_hours < 720.0`
//   - `"interests.tech" in candidate.dims && candidate.dims["interests.tech"] > 20.0`
//
// 资格规则在打分之前执行，因此不提供兼容分。
//   - `size(candidate.dims) >= 3`
type Program struct {
	expr string
	prg  cel.Program

	// Now 用于计算 age_hours，测试中可替换
	Now func() time.Time
}

// Compile 编译表达式，要求结果类型为 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", t)
	}

	prg, err := env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg, Now: time.Now}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个候选求值。
func (p *Program) Eval(ctx context.Context, mctx *core.MatchContext, item *core.Item) (bool, error) {
	out, _, err := p.prg.ContextEval(ctx, p.buildInput(mctx, item))
	if err != nil {
		// 访问不存在的 key 会报错，表达式应先用 in 检查存在性
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (p *Program) buildInput(mctx *core.MatchContext, item *core.Item) map[string]any {
	candidate := map[string]any{
		"id":             item.ID,
		"dims":           map[string]float64{},
		"age_hours":      0.0,
		"has_updated_at": false,
	}
	if v := item.Vector; v != nil {
		if v.Dimensions != nil {
			candidate["dims"] = v.Dimensions
		}
		if !v.UpdatedAt.IsZero() {
			candidate["has_updated_at"] = true
			candidate["age_hours"] = p.now().Sub(v.UpdatedAt).Hours()
		}
	}

	requester := map[string]any{
		"id":   "",
		"dims": map[string]float64{},
	}
	if mctx != nil {
		requester["id"] = mctx.AgentID
		if mctx.Vector != nil && mctx.Vector.Dimensions != nil {
			requester["dims"] = mctx.Vector.Dimensions
		}
	}

	return map[string]any{
		"candidate": candidate,
		"requester": requester,
	}
}

func (p *Program) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
