package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxAgentIDLength 是 agent id 的最大字节数。
const MaxAgentIDLength = 128

// DimensionSeparator 用于拼接分组维度名，例如 "interests.tech"。
const DimensionSeparator = "."

// 上游按分组存储的维度组名。
const (
	GroupInterests          = "interests"
	GroupTopics             = "topics"
	GroupCommunicationStyle = "communication_style"
)

// TasteVector 是一个 agent 的取向画像：维度名 -> 数值。
//
// 设计要点：
//   - 每个 agent 至多一个向量（由外部存储保证 upsert 语义）
//   - 维度集合不固定，两侧缺失的维度视为“无信号”，不等同于 0
//   - 推荐取值 0-100，但打分器接受任意有限实数
//   - UpdatedAt 只用于外部存储的时效策略，不参与打分
type TasteVector struct {
	AgentID    string             `json:"agentId" yaml:"agent_id"`
	Dimensions map[string]float64 `json:"dimensions" yaml:"dimensions"`
	UpdatedAt  time.Time          `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// NewTasteVector 创建一个取向向量。dims 为 nil 时使用空 map。
func NewTasteVector(agentID string, dims map[string]float64) *TasteVector {
	if dims == nil {
		dims = make(map[string]float64)
	}
	return &TasteVector{
		AgentID:    agentID,
		Dimensions: dims,
	}
}

// FlattenGroups 把分组画像（interests / topics / communication_style）
// 展平为 "<group>.<name>" 维度。
func FlattenGroups(groups map[string]map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for group, dims := range groups {
		for name, v := range dims {
			out[group+DimensionSeparator+name] = v
		}
	}
	return out
}

// Groups 是 FlattenGroups 的逆操作；没有分组前缀的维度归入 "" 组。
func (v *TasteVector) Groups() map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	if v == nil {
		return out
	}
	for dim, val := range v.Dimensions {
		group, name := "", dim
		if i := strings.Index(dim, DimensionSeparator); i > 0 {
			group, name = dim[:i], dim[i+len(DimensionSeparator):]
		}
		if out[group] == nil {
			out[group] = make(map[string]float64)
		}
		out[group][name] = val
	}
	return out
}

// Len 返回已填充的维度数。
func (v *TasteVector) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Dimensions)
}

// Has 检查维度是否存在（存在且为 0 与不存在是两回事）。
func (v *TasteVector) Has(dim string) bool {
	if v == nil || v.Dimensions == nil {
		return false
	}
	_, ok := v.Dimensions[dim]
	return ok
}

// DimensionNames 返回排序后的维度名。
func (v *TasteVector) DimensionNames() []string {
	if v == nil {
		return nil
	}
	names := make([]string, 0, len(v.Dimensions))
	for k := range v.Dimensions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone 深拷贝。
func (v *TasteVector) Clone() *TasteVector {
	if v == nil {
		return nil
	}
	dims := make(map[string]float64, len(v.Dimensions))
	for k, val := range v.Dimensions {
		dims[k] = val
	}
	return &TasteVector{
		AgentID:    v.AgentID,
		Dimensions: dims,
		UpdatedAt:  v.UpdatedAt,
	}
}

// Validate 在边界处校验向量：agent id 合法、所有值为有限实数。
// 打分热路径不再重复校验。
func (v *TasteVector) Validate() error {
	if v == nil {
		return ErrInvalidInput("taste vector is nil")
	}
	if err := ValidateAgentID(v.AgentID, false); err != nil {
		return err
	}
	for dim, val := range v.Dimensions {
		if dim == "" {
			return ErrInvalidInput(fmt.Sprintf("agent %q: empty dimension name", v.AgentID))
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ErrInvalidInput(fmt.Sprintf("agent %q: dimension %q is not a finite number", v.AgentID, dim))
		}
	}
	return nil
}

// ValidateAgentID 校验 agent id：非空、长度受限、合法 UTF-8、无空白/控制字符；
// strictUUID 为 true 时必须是合法 UUID。
func ValidateAgentID(id string, strictUUID bool) error {
	if id == "" {
		return ErrInvalidInput("agent id is required")
	}
	if len(id) > MaxAgentIDLength {
		return ErrInvalidInput(fmt.Sprintf("agent id exceeds %d bytes", MaxAgentIDLength))
	}
	if !utf8.ValidString(id) {
		return ErrInvalidInput("agent id is not valid UTF-8")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidInput(fmt.Sprintf("agent id %q contains whitespace or control characters", id))
		}
	}
	if strictUUID {
		if _, err := uuid.Parse(id); err != nil {
			return ErrInvalidInput(fmt.Sprintf("agent id %q is not a uuid", id))
		}
	}
	return nil
}
