package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/gyeol/moltmatch/core"
)

// ProblemDetails 是 RFC 7807 错误响应。
type ProblemDetails struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NoProfileSignalDetail 是请求方还没有取向向量时给用户的提示。
const NoProfileSignalDetail = "not enough interaction yet: keep chatting so we can learn your taste"

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (h *Handler) respondProblem(w http.ResponseWriter, status int, title, code, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	problem := ProblemDetails{Type: "about:blank", Title: title, Status: status, Code: code, Detail: detail}
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// respondError 把领域错误映射为 HTTP 状态码。
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	de := core.GetDomainError(err)
	code := ""
	if de != nil {
		code = de.Code
	}
	switch code {
	case core.ErrorCodeInvalidInput:
		h.respondProblem(w, http.StatusBadRequest, "Bad Request", code, de.Message)
	case core.ErrorCodeNoProfileSignal:
		h.respondProblem(w, http.StatusUnprocessableEntity, "No Profile Signal", code, NoProfileSignalDetail)
	case core.ErrorCodeNotFound:
		h.respondProblem(w, http.StatusNotFound, "Not Found", code, de.Message)
	case core.ErrorCodeUnavailable:
		h.logger.Warn("upstream unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		h.respondProblem(w, http.StatusServiceUnavailable, "Service Unavailable", code, "matching is temporarily unavailable, retry later")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.respondProblem(w, http.StatusInternalServerError, "Internal Server Error", core.ErrorCodeInternalError, "internal error")
	}
}
