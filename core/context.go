package core

import "github.com/gyeol/moltmatch/pkg/utils"

// MatchContext 承载请求方与本次请求读到的数据快照，贯穿整个 Pipeline 透传。
// 只在单次请求内有效，不跨请求共享。
type MatchContext struct {
	AgentID string

	// Vector 是请求方自己的取向向量（Pipeline 运行前必须已存在）
	Vector *TasteVector

	// Exclusions 是本次请求的排除集合（已包含请求方自身）
	Exclusions ExclusionSet

	// Pool 是本次请求读到的候选池
	Pool []*TasteVector

	// Labels 是请求级标签
	Labels map[string]utils.Label

	// Params 请求级参数，例如 limit
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (mctx *MatchContext) PutLabel(key string, lbl utils.Label) {
	if mctx.Labels == nil {
		mctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := mctx.Labels[key]; ok {
		mctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	mctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (mctx *MatchContext) GetLabel(key string) (utils.Label, bool) {
	if mctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := mctx.Labels[key]
	return lbl, ok
}

// IsExcluded 判断 id 是否为请求方自身或在排除集合中。
func (mctx *MatchContext) IsExcluded(id string) bool {
	if mctx == nil {
		return false
	}
	return id == mctx.AgentID || mctx.Exclusions.Contains(id)
}
