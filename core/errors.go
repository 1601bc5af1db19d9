package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持 errors.Is / errors.As，Err 保留上游原始错误
//
// 使用场景：
//   - 匹配错误：NO_PROFILE_SIGNAL, UNAVAILABLE, INVALID_INPUT
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "NO_PROFILE_SIGNAL"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "match"）
	Err     error  // 上游原始错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 比较，便于 errors.Is(err, ErrStoreNotFound)。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Module == t.Module
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带上游错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound        = "NOT_FOUND"         // 资源不存在
	ErrorCodeNotSupported    = "NOT_SUPPORTED"     // 操作不支持
	ErrorCodeUnavailable     = "UNAVAILABLE"       // 上游不可用 / 超时
	ErrorCodeInvalidInput    = "INVALID_INPUT"     // 输入无效
	ErrorCodeInternalError   = "INTERNAL_ERROR"    // 内部错误
	ErrorCodeNoProfileSignal = "NO_PROFILE_SIGNAL" // 请求方尚无取向向量
)

// 模块名称常量
const (
	ModuleStore  = "store"  // 存储模块
	ModuleMatch  = "match"  // 匹配模块
	ModuleScorer = "scorer" // 打分模块
	ModuleFilter = "filter" // 过滤模块
)

// ErrNoProfileSignal 表示请求方没有取向向量（交互不足），与“没有候选”是两种结果。
func ErrNoProfileSignal(agentID string) *DomainError {
	return NewDomainError(ModuleMatch, ErrorCodeNoProfileSignal,
		fmt.Sprintf("match: agent %q has no taste vector yet", agentID))
}

// ErrUpstreamUnavailable 表示向量存储或关系存储读取失败/超时。
func ErrUpstreamUnavailable(op string, err error) *DomainError {
	return WrapDomainError(ModuleMatch, ErrorCodeUnavailable, "match: upstream unavailable ("+op+")", err)
}

// ErrInvalidInput 表示请求参数在任何 I/O 之前就被拒绝。
func ErrInvalidInput(message string) *DomainError {
	return NewDomainError(ModuleMatch, ErrorCodeInvalidInput, "match: "+message)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsNoProfileSignal 检查错误是否为 NO_PROFILE_SIGNAL
func IsNoProfileSignal(err error) bool { return hasCode(err, ErrorCodeNoProfileSignal) }
