package utils

import "strings"

// 匹配链路使用的标签 key。
const (
	LabelRecallSource = "recall_source" // 候选来源，目前只有 pool
	LabelFiltered     = "filtered"      // 被哪个过滤器剔除
	LabelMatchMetric  = "match_metric"  // 打分指标名
	LabelPoolInvalid  = "pool_invalid"  // 候选池中被跳过的非法向量数（请求级）
)

const (
	valueSep  = "|"
	sourceSep = ","
)

// Label 附着在候选或请求上，说明它经过了哪些节点、为什么被保留或剔除。
// Value 与 Source 的语义由写入节点决定，这里只约定合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter.* / rank / match
}

func NewLabel(value, source string) Label {
	return Label{Value: value, Source: source}
}

// Values 返回合并后累积的各个值。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, valueSep)
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积、Source 以 ',' 累积，已出现过的片段不重复追加。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, valueSep),
		Source: appendUnique(existing.Source, incoming.Source, sourceSep),
	}
}

func appendUnique(acc, part, sep string) string {
	switch {
	case acc == "":
		return part
	case part == "":
		return acc
	}
	for _, p := range strings.Split(acc, sep) {
		if p == part {
			return acc
		}
	}
	return acc + sep + part
}
