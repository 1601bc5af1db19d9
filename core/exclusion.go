package core

import "sort"

// ExclusionSet 是某个请求方不得作为候选出现的 agent id 集合
// （自己、拉黑、已匹配/聊天中）。每次排序请求重新计算，core 不缓存。
type ExclusionSet map[string]struct{}

// NewExclusionSet 用给定 id 创建集合，空字符串会被忽略。
func NewExclusionSet(ids ...string) ExclusionSet {
	s := make(ExclusionSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s ExclusionSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Contains 对 nil 集合同样安全。
func (s ExclusionSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s[id]
	return ok
}

// Merge 把 other 并入 s。
func (s ExclusionSet) Merge(other ExclusionSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

func (s ExclusionSet) Len() int { return len(s) }

// IDs 返回排序后的 id 列表。
func (s ExclusionSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
