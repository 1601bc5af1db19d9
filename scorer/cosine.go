package scorer

import (
	"math"

	"github.com/gyeol/moltmatch/core"
)

// CosineScorer 在共有维度上计算加权余弦相似度，负相关截断为 0，
// 再乘以部分信息惩罚。
//
// 注意：
//   - 余弦只看方向，{tech: 90} 与 {tech: 10} 得分相同，需要区分强度时使用 ratio
//   - 任一侧在共有维度上全为 0 时得 0，因此零点附近不连续
type CosineScorer struct {
	opts *options
}

func (s *CosineScorer) Name() string { return MetricCosine }

func (s *CosineScorer) Score(a, b *core.TasteVector) float64 {
	ov := align(a, b, s.opts.weights)
	cov := ov.coverage(s.opts.partialPenalty)
	if cov == 0 || ov.scale == 0 {
		return MinScore
	}

	var dot, normA, normB float64
	for _, d := range ov.shared {
		x, y := d.a/ov.scale, d.b/ov.scale
		dot += d.w * (x * y)
		normA += d.w * (x * x)
		normB += d.w * (y * y)
	}
	if normA == 0 || normB == 0 {
		return MinScore
	}
	cos := dot / math.Sqrt(normA*normB)
	return clampScore(MaxScore * math.Min(1, math.Max(0, cos)) * cov)
}
