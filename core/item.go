package core

import "github.com/gyeol/moltmatch/pkg/utils"

// Item 是匹配链路中的统一承载结构：候选 agent、取向向量、分数、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID     string
	Score  float64
	Vector *TasteVector
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Labels: make(map[string]utils.Label),
	}
}

// NewItemFromVector 用候选向量创建 Item，ID 取自向量的 AgentID。
func NewItemFromVector(v *TasteVector) *Item {
	it := NewItem(v.AgentID)
	it.Vector = v
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
