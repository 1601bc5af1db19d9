// Package scorer 实现取向向量之间的兼容度打分。
//
// 所有实现都满足：
//   - 纯函数、无 I/O、对任意有限输入不报错
//   - 对称：Score(a, b) == Score(b, a)（逐位相等，求和按维度名排序进行）
//   - 自身相似度最大：Score(v, v) 为 v 能得到的最高分
//   - 单侧维度按“部分信息惩罚”降分，不会直接归零
//   - 对数值连续，没有阈值分支
package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/gyeol/moltmatch/core"
)

// 分数区间。
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// 度量方式名称。
const (
	MetricRatio  = "ratio"
	MetricCosine = "cosine"
)

// 默认参数。
const (
	DefaultSmoothing      = 1.0
	DefaultPartialPenalty = 0.5
)

// Scorer 是兼容度打分器：分数越高越兼容，范围 [MinScore, MaxScore]。
type Scorer interface {
	Name() string
	Score(a, b *core.TasteVector) float64
}

// Func 把普通函数适配为 Scorer，主要用于测试。
type Func func(a, b *core.TasteVector) float64

func (f Func) Name() string { return "func" }

func (f Func) Score(a, b *core.TasteVector) float64 { return f(a, b) }

// Option 配置打分器。
type Option func(*options)

type options struct {
	weights        *Weights
	smoothing      float64
	partialPenalty float64
}

// WithWeights 设置维度权重。
func WithWeights(w *Weights) Option {
	return func(o *options) { o.weights = w }
}

// WithSmoothing 设置平滑常数 k（>0），值越大零点附近越平缓。
func WithSmoothing(k float64) Option {
	return func(o *options) { o.smoothing = k }
}

// WithPartialPenalty 设置单侧维度的惩罚系数 λ（>=0）。
func WithPartialPenalty(lambda float64) Option {
	return func(o *options) { o.partialPenalty = lambda }
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{
		smoothing:      DefaultSmoothing,
		partialPenalty: DefaultPartialPenalty,
	}
	for _, opt := range opts {
		opt(o)
	}
	if !(o.smoothing > 0) || math.IsInf(o.smoothing, 0) {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("scorer: smoothing must be a positive finite number, got %v", o.smoothing))
	}
	if !(o.partialPenalty >= 0) || math.IsInf(o.partialPenalty, 0) {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("scorer: partial penalty must be a non-negative finite number, got %v", o.partialPenalty))
	}
	if o.weights != nil {
		if err := o.weights.Validate(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// New 按度量方式名称创建打分器，空名称使用 ratio。
func New(metric string, opts ...Option) (Scorer, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	switch metric {
	case "", MetricRatio:
		return &RatioScorer{opts: o}, nil
	case MetricCosine:
		return &CosineScorer{opts: o}, nil
	default:
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeNotSupported,
			fmt.Sprintf("scorer: unknown metric %q (supported: %s, %s)", metric, MetricRatio, MetricCosine))
	}
}

// Default 返回默认参数的 ratio 打分器。
func Default() Scorer {
	return &RatioScorer{opts: &options{
		smoothing:      DefaultSmoothing,
		partialPenalty: DefaultPartialPenalty,
	}}
}

// overlap 是两个向量按维度名排序后的对齐结果。
type overlap struct {
	shared    []sharedDim
	sharedW   float64 // 共有维度权重和
	oneSidedW float64 // 单侧维度权重和
	scale     float64 // 共有维度上的最大绝对值，用于防止溢出
	wscale    float64 // 参与维度的最大权重；权重已除以它
}

type sharedDim struct {
	a, b, w float64
}

func dims(v *core.TasteVector) map[string]float64 {
	if v == nil {
		return nil
	}
	return v.Dimensions
}

// align 按排序后的维度名并集遍历，保证两种参数顺序下求和顺序一致。
func align(a, b *core.TasteVector, w *Weights) overlap {
	da, db := dims(a), dims(b)
	keys := make([]string, 0, len(da)+len(db))
	for k := range da {
		keys = append(keys, k)
	}
	for k := range db {
		if _, ok := da[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// 权重先除以最大权重再求和，极大的权重也不会溢出；
	// agreement 与 coverage 都是权重的比值，不受整体缩放影响。
	weights := make([]float64, len(keys))
	ov := overlap{shared: make([]sharedDim, 0, len(keys)), wscale: 1}
	maxW := 0.0
	for i, k := range keys {
		weights[i] = w.For(k)
		if weights[i] > maxW {
			maxW = weights[i]
		}
	}
	if maxW > 0 {
		ov.wscale = maxW
	}

	for i, k := range keys {
		va, okA := da[k]
		vb, okB := db[k]
		weight := weights[i] / ov.wscale
		if !okA || !okB {
			ov.oneSidedW += weight
			continue
		}
		ov.shared = append(ov.shared, sharedDim{a: va, b: vb, w: weight})
		ov.sharedW += weight
		if m := math.Abs(va); m > ov.scale {
			ov.scale = m
		}
		if m := math.Abs(vb); m > ov.scale {
			ov.scale = m
		}
	}
	return ov
}

// coverage 是部分信息惩罚：共有权重 / (共有权重 + λ·单侧权重)。
func (ov overlap) coverage(lambda float64) float64 {
	if ov.sharedW <= 0 {
		return 0
	}
	return ov.sharedW / (ov.sharedW + lambda*ov.oneSidedW)
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
