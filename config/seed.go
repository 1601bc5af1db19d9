package config

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/gyeol/moltmatch/core"
)

// SeedFile 是 seed 命令读取的 YAML 数据文件。
//
//	vectors:
//	  - agent_id: 7d5c...            # 省略时生成 UUID
//	    dimensions: {interests.tech: 90}
//	    groups:                      # 与 dimensions 二选一或合并
//	      communication_style: {humor: 40}
//	blocks:
//	  - {blocker: a, blocked: b}
type SeedFile struct {
	Vectors []SeedVector `yaml:"vectors"`
	Blocks  []SeedBlock  `yaml:"blocks"`
}

type SeedVector struct {
	AgentID    string                        `yaml:"agent_id"`
	Dimensions map[string]float64            `yaml:"dimensions"`
	Groups     map[string]map[string]float64 `yaml:"groups"`
}

type SeedBlock struct {
	Blocker string `yaml:"blocker"`
	Blocked string `yaml:"blocked"`
}

// LoadSeedFile 读取并解析 seed 文件。
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed 解析 seed 数据；未知字段报错。
func ParseSeed(data []byte) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &f, nil
}

// TasteVectors 把 seed 项转换为取向向量，缺省 id 用 UUID 补齐。
func (f *SeedFile) TasteVectors() []*core.TasteVector {
	out := make([]*core.TasteVector, 0, len(f.Vectors))
	for _, sv := range f.Vectors {
		dims := core.FlattenGroups(sv.Groups)
		for k, v := range sv.Dimensions {
			dims[k] = v
		}
		id := sv.AgentID
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, core.NewTasteVector(id, dims))
	}
	return out
}

// SeedResult 统计写入数量。
type SeedResult struct {
	Vectors []string
	Blocks  int
}

// Apply 校验全部数据后再写入；任一向量无效时不写任何数据。
func (f *SeedFile) Apply(ctx context.Context, s Seeder) (*SeedResult, error) {
	vectors := f.TasteVectors()
	for _, v := range vectors {
		if err := s.ValidateVector(v); err != nil {
			return nil, err
		}
	}
	for _, b := range f.Blocks {
		if b.Blocker == "" || b.Blocked == "" || b.Blocker == b.Blocked {
			return nil, core.ErrInvalidInput(fmt.Sprintf("invalid block %q -> %q", b.Blocker, b.Blocked))
		}
	}

	res := &SeedResult{}
	for _, v := range vectors {
		if err := s.UpsertVector(ctx, v); err != nil {
			return res, fmt.Errorf("upsert %s: %w", v.AgentID, err)
		}
		res.Vectors = append(res.Vectors, v.AgentID)
	}
	for _, b := range f.Blocks {
		if err := s.Block(ctx, b.Blocker, b.Blocked); err != nil {
			return res, fmt.Errorf("block %s -> %s: %w", b.Blocker, b.Blocked, err)
		}
		res.Blocks++
	}
	return res, nil
}
