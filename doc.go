// Package moltmatch 是 agent 取向匹配核心：按取向向量给两个 agent 打兼容分，
// 并为请求方在候选池中选出兼容度最高的若干个 agent。
//
// 设计要点：
// - Pipeline-first: 排序通过 Node 串联（PoolRecall → Filter → Compatibility → Sort → TopN）
// - Labels-first: labels 全链路透传，支持 explain（排除原因、打分指标、召回来源）
// - 存储可插拔: 向量存储与关系存储都是接口，内置 memory / redis / postgres 实现
package moltmatch

import (
	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/match"
	"github.com/gyeol/moltmatch/pipeline"
	"github.com/gyeol/moltmatch/scorer"
)

// 轻量 facade：便于直接 import "moltmatch" 使用核心抽象。
type (
	TasteVector    = core.TasteVector
	MatchCandidate = core.MatchCandidate
	MatchRecord    = core.MatchRecord
	Ranker         = match.Ranker
	MoltMatcher    = match.MoltMatcher
	Scorer         = scorer.Scorer
	Pipeline       = pipeline.Pipeline
	Node           = pipeline.Node
)

var (
	NewRanker      = match.NewRanker
	NewMoltMatcher = match.NewMoltMatcher
	NewScorer      = scorer.New
	DefaultScorer  = scorer.Default
)
