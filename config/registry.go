package config

import (
	"context"
	"sort"
	"sync"

	"github.com/gyeol/moltmatch/core"
)

// 内置存储后端
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Backend 是一个存储后端提供的全部协作者。
type Backend struct {
	Vectors   core.TasteVectorStore
	Relations core.RelationshipFilter
	Matches   core.MatchWriter

	// Seeder 可选：支持 seed 命令写入向量与拉黑关系
	Seeder Seeder

	Close func() error
}

// Seeder 是 seed 命令需要的写入能力。
// ValidateVector 必须覆盖 UpsertVector 的全部拒绝条件，Apply 据此在写入前整体校验。
type Seeder interface {
	ValidateVector(v *core.TasteVector) error
	UpsertVector(ctx context.Context, v *core.TasteVector) error
	Block(ctx context.Context, blockerID, blockedID string) error
}

// BackendBuilder 根据配置打开一个后端。
type BackendBuilder func(ctx context.Context, cfg *Config) (*Backend, error)

var (
	backends   = make(map[string]BackendBuilder)
	backendsMu sync.RWMutex
)

// RegisterBackend 注册一种存储后端，同名覆盖。
func RegisterBackend(name string, builder BackendBuilder) {
	if name == "" || builder == nil {
		return
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = builder
}

// IsRegisteredBackend 检查后端是否已注册。
func IsRegisteredBackend(name string) bool {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// SupportedBackends 返回已注册的后端名（排序），用于错误提示。
func SupportedBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(name string) (BackendBuilder, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	b, ok := backends[name]
	return b, ok
}
