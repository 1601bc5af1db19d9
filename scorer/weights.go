package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/gyeol/moltmatch/core"
)

// Weights 是维度权重：精确维度名优先，其次最长前缀匹配，最后是 Default。
//
// 示例：
//
//	&Weights{ByPrefix: map[string]float64{"interests.": 1.5, "communication_style.": 0.5}}
type Weights struct {
	// Default 未命中时的权重，<=0 时视为 1
	Default float64 `yaml:"default" json:"default" mapstructure:"default"`

	// ByPrefix 维度名前缀 -> 权重，例如 "topics."
	ByPrefix map[string]float64 `yaml:"by_prefix" json:"by_prefix" mapstructure:"by_prefix"`

	// ByDimension 精确维度名 -> 权重
	ByDimension map[string]float64 `yaml:"by_dimension" json:"by_dimension" mapstructure:"by_dimension"`
}

// For 返回维度权重，nil Weights 一律为 1。
func (w *Weights) For(dim string) float64 {
	if w == nil {
		return 1
	}
	if v, ok := w.ByDimension[dim]; ok {
		return v
	}
	best, bestLen := 0.0, -1
	for prefix, v := range w.ByPrefix {
		if strings.HasPrefix(dim, prefix) && len(prefix) > bestLen {
			best, bestLen = v, len(prefix)
		}
	}
	if bestLen >= 0 {
		return best
	}
	if w.Default > 0 {
		return w.Default
	}
	return 1
}

// Validate 要求所有显式权重为正的有限数。
func (w *Weights) Validate() error {
	if w == nil {
		return nil
	}
	check := func(name string, v float64) error {
		if !(v > 0) || math.IsInf(v, 0) {
			return core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
				fmt.Sprintf("scorer: weight %q must be a positive finite number, got %v", name, v))
		}
		return nil
	}
	if w.Default != 0 {
		if err := check("default", w.Default); err != nil {
			return err
		}
	}
	for k, v := range w.ByPrefix {
		if err := check(k, v); err != nil {
			return err
		}
	}
	for k, v := range w.ByDimension {
		if err := check(k, v); err != nil {
			return err
		}
	}
	return nil
}
