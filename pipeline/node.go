package pipeline

import (
	"context"

	"github.com/gyeol/moltmatch/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall Kind = "recall" // 召回阶段：读取候选池
	KindFilter Kind = "filter" // 过滤阶段：剔除排除集合与不合规则的候选
	KindRank   Kind = "rank"   // 打分阶段：计算兼容度
	KindReRank Kind = "rerank" // 重排阶段：确定性排序与截断
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		mctx *core.MatchContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
