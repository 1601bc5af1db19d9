package core

import "time"

// MatchConfig 是匹配相关的配置接口，用于提供默认值。
type MatchConfig interface {
	// DefaultLimit 返回默认返回条数
	DefaultLimit() int

	// MaxLimit 返回调用方允许请求的最大条数
	MaxLimit() int

	// PoolSize 返回默认候选池大小
	PoolSize() int

	// PoolCeiling 返回候选池大小上限
	PoolCeiling() int

	// DefaultTimeout 返回单次排序的默认超时时间
	DefaultTimeout() time.Duration
}

// DefaultMatchConfig 是默认的匹配配置实现。
type DefaultMatchConfig struct{}

func (c *DefaultMatchConfig) DefaultLimit() int { return 5 }

func (c *DefaultMatchConfig) MaxLimit() int { return 20 }

func (c *DefaultMatchConfig) PoolSize() int { return 100 }

func (c *DefaultMatchConfig) PoolCeiling() int { return 100 }

func (c *DefaultMatchConfig) DefaultTimeout() time.Duration { return 2 * time.Second }

// ClampLimit 把调用方给出的 limit 限制在 [0, max]。
func ClampLimit(limit, max int) int {
	if limit < 0 {
		return 0
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// PoolSizeFor 计算候选池大小：不小于 limit，且不超过 ceiling。
func PoolSizeFor(limit, poolSize, ceiling int) int {
	n := poolSize
	if n < limit {
		n = limit
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	if n < 1 {
		n = 1
	}
	return n
}
