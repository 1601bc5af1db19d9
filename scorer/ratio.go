package scorer

import (
	"math"

	"github.com/gyeol/moltmatch/core"
)

// RatioScorer 是默认打分器，基于共有维度上的相对 L1 距离。
//
//	D = Σ w·|a-b|,  M = Σ w·(|a|+|b|)        （仅共有维度）
//	agreement = 1 - D / (M + k)
//	coverage  = W共有 / (W共有 + λ·W单侧)
//	score     = 100 · agreement · coverage
//
// 完全相同的向量得 100；方向相反或一侧全为 0 时接近 0；
// 没有共有维度时为 0。k 让零点附近保持连续。
type RatioScorer struct {
	opts *options
}

func (s *RatioScorer) Name() string { return MetricRatio }

func (s *RatioScorer) Score(a, b *core.TasteVector) float64 {
	ov := align(a, b, s.opts.weights)
	cov := ov.coverage(s.opts.partialPenalty)
	if cov == 0 {
		return MinScore
	}

	// 按最大绝对值缩放数值，避免极大数值溢出
	scale := ov.scale
	if scale == 0 {
		scale = 1
	}
	var diff, mass float64
	for _, d := range ov.shared {
		x, y := d.a/scale, d.b/scale
		diff += d.w * math.Abs(x-y)
		mass += d.w * (math.Abs(x) + math.Abs(y))
	}
	// 数值与权重都已缩放，平滑项按同样比例换算
	agreement := 1 - diff/(mass+s.opts.smoothing/scale/ov.wscale)
	return clampScore(MaxScore * agreement * cov)
}
