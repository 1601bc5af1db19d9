// Package config 加载应用配置：YAML 文件 + MOLTMATCH_* 环境变量覆盖，并按配置组装匹配组件。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/filter"
	"github.com/gyeol/moltmatch/scorer"
)

// EnvPrefix 是环境变量前缀；嵌套 key 用下划线连接，例如 MOLTMATCH_STORE_BACKEND。
const EnvPrefix = "MOLTMATCH"

// keyDelimiter 替换 viper 默认的 "."，维度名（如 "interests.tech"）可以直接作为权重表的 key。
const keyDelimiter = "::"

// Config 是应用配置。
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Match     MatchConfig     `mapstructure:"match" yaml:"match"`
	MoltMatch MoltMatchConfig `mapstructure:"moltmatch" yaml:"moltmatch"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig 选择存储后端：memory / redis / postgres。
type StoreConfig struct {
	Backend  string         `mapstructure:"backend" yaml:"backend"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`

	// OneWayBlocks 为 true 时只排除我拉黑的人，不排除拉黑我的人
	OneWayBlocks bool `mapstructure:"one_way_blocks" yaml:"one_way_blocks"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
	Migrate bool   `mapstructure:"migrate" yaml:"migrate"`
}

// MatchConfig 是排序相关配置，同时实现 core.MatchConfig。
type MatchConfig struct {
	Limit          int             `mapstructure:"default_limit" yaml:"default_limit"`
	Max            int             `mapstructure:"max_limit" yaml:"max_limit"`
	Pool           int             `mapstructure:"pool_size" yaml:"pool_size"`
	Ceiling        int             `mapstructure:"pool_ceiling" yaml:"pool_ceiling"`
	Timeout        time.Duration   `mapstructure:"timeout" yaml:"timeout"`
	Metric         string          `mapstructure:"metric" yaml:"metric"`
	Smoothing      float64         `mapstructure:"smoothing" yaml:"smoothing"`
	PartialPenalty float64         `mapstructure:"partial_penalty" yaml:"partial_penalty"`
	Weights        *scorer.Weights `mapstructure:"weights" yaml:"weights"`
	Eligibility    string          `mapstructure:"eligibility" yaml:"eligibility"`
	StrictIDs      bool            `mapstructure:"strict_ids" yaml:"strict_ids"`
}

func (c MatchConfig) DefaultLimit() int             { return c.Limit }
func (c MatchConfig) MaxLimit() int                 { return c.Max }
func (c MatchConfig) PoolSize() int                 { return c.Pool }
func (c MatchConfig) PoolCeiling() int              { return c.Ceiling }
func (c MatchConfig) DefaultTimeout() time.Duration { return c.Timeout }

var _ core.MatchConfig = MatchConfig{}

type MoltMatchConfig struct {
	MinAutonomy      int     `mapstructure:"min_autonomy" yaml:"min_autonomy"`
	MatchedThreshold float64 `mapstructure:"matched_threshold" yaml:"matched_threshold"`
	TopN             int     `mapstructure:"top_n" yaml:"top_n"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Default 返回默认配置：内存存储、ratio 打分、limit 5/20、候选池 100。
func Default() *Config {
	d := &core.DefaultMatchConfig{}
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Match: MatchConfig{
			Limit:          d.DefaultLimit(),
			Max:            d.MaxLimit(),
			Pool:           d.PoolSize(),
			Ceiling:        d.PoolCeiling(),
			Timeout:        d.DefaultTimeout(),
			Metric:         scorer.MetricRatio,
			Smoothing:      scorer.DefaultSmoothing,
			PartialPenalty: scorer.DefaultPartialPenalty,
		},
		MoltMatch: MoltMatchConfig{
			MinAutonomy:      30,
			MatchedThreshold: 70,
			TopN:             5,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 读取配置：默认值 → YAML 文件（path 为空则跳过）→ 环境变量。
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 注册所有 key，AutomaticEnv 只覆盖已知 key。
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("http::addr", d.HTTP.Addr)
	v.SetDefault("http::read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http::write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http::shutdown_timeout", d.HTTP.ShutdownTimeout)

	v.SetDefault("store::backend", d.Store.Backend)
	v.SetDefault("store::one_way_blocks", d.Store.OneWayBlocks)
	v.SetDefault("store::redis::addr", d.Store.Redis.Addr)
	v.SetDefault("store::redis::password", d.Store.Redis.Password)
	v.SetDefault("store::redis::db", d.Store.Redis.DB)
	v.SetDefault("store::postgres::dsn", d.Store.Postgres.DSN)
	v.SetDefault("store::postgres::migrate", d.Store.Postgres.Migrate)

	v.SetDefault("match::default_limit", d.Match.Limit)
	v.SetDefault("match::max_limit", d.Match.Max)
	v.SetDefault("match::pool_size", d.Match.Pool)
	v.SetDefault("match::pool_ceiling", d.Match.Ceiling)
	v.SetDefault("match::timeout", d.Match.Timeout)
	v.SetDefault("match::metric", d.Match.Metric)
	v.SetDefault("match::smoothing", d.Match.Smoothing)
	v.SetDefault("match::partial_penalty", d.Match.PartialPenalty)
	v.SetDefault("match::eligibility", d.Match.Eligibility)
	v.SetDefault("match::strict_ids", d.Match.StrictIDs)

	v.SetDefault("moltmatch::min_autonomy", d.MoltMatch.MinAutonomy)
	v.SetDefault("moltmatch::matched_threshold", d.MoltMatch.MatchedThreshold)
	v.SetDefault("moltmatch::top_n", d.MoltMatch.TopN)

	v.SetDefault("log::level", d.Log.Level)
	v.SetDefault("log::development", d.Log.Development)
}

// Validate 校验配置；错误为 INVALID_INPUT。
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return core.NewDomainError("config", core.ErrorCodeInvalidInput, "config: "+fmt.Sprintf(format, args...))
	}

	if !IsRegisteredBackend(c.Store.Backend) {
		return invalid("unknown store backend %q (supported: %v)", c.Store.Backend, SupportedBackends())
	}
	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return invalid("store.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return invalid("store.postgres.dsn is required for the postgres backend")
		}
	}

	m := c.Match
	if m.Max < 1 {
		return invalid("match.max_limit must be positive, got %d", m.Max)
	}
	if m.Limit < 1 || m.Limit > m.Max {
		return invalid("match.default_limit must be within [1, %d], got %d", m.Max, m.Limit)
	}
	if m.Pool < 1 || m.Ceiling < 1 {
		return invalid("match.pool_size and match.pool_ceiling must be positive")
	}
	if m.Ceiling < m.Max {
		return invalid("match.pool_ceiling (%d) must be at least match.max_limit (%d)", m.Ceiling, m.Max)
	}
	if m.Timeout < 0 {
		return invalid("match.timeout must not be negative")
	}
	if _, err := scorer.New(m.Metric, c.ScorerOptions()...); err != nil {
		return invalid("match scorer: %v", err)
	}
	if _, err := filter.NewExprFilter(m.Eligibility); err != nil {
		return invalid("match.eligibility: %v", err)
	}

	mm := c.MoltMatch
	if mm.MinAutonomy < 0 || mm.MinAutonomy > 100 {
		return invalid("moltmatch.min_autonomy must be within [0, 100], got %d", mm.MinAutonomy)
	}
	if mm.TopN < 1 || mm.TopN > m.Max {
		return invalid("moltmatch.top_n must be within [1, %d], got %d", m.Max, mm.TopN)
	}
	return nil
}

// ScorerOptions 把配置转换为 scorer.Option。
func (c *Config) ScorerOptions() []scorer.Option {
	opts := []scorer.Option{
		scorer.WithSmoothing(c.Match.Smoothing),
		scorer.WithPartialPenalty(c.Match.PartialPenalty),
	}
	if c.Match.Weights != nil {
		opts = append(opts, scorer.WithWeights(c.Match.Weights))
	}
	return opts
}
