// Package api 是匹配服务的 HTTP 入口：把请求翻译为 Ranker / MoltMatcher 调用并序列化结果。
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/match"
)

const maxBodyBytes = 1 << 20

// Ranker 是 handler 需要的排序能力，由 *match.Ranker 实现。
type Ranker interface {
	FindTopMatches(ctx context.Context, agentID string, limit int) ([]core.MatchCandidate, error)
}

// MoltMatcher 是 handler 需要的自动匹配能力，由 *match.MoltMatcher 实现。
type MoltMatcher interface {
	Run(ctx context.Context, agentID string, autonomy int) (*match.MoltMatchResult, error)
}

type Handler struct {
	ranker Ranker
	molt   MoltMatcher
	cfg    core.MatchConfig
	logger *zap.Logger
}

// NewHandler 创建 handler；molt 为 nil 时不注册自动匹配路由，logger 为 nil 时不输出日志。
func NewHandler(ranker Ranker, molt MoltMatcher, cfg core.MatchConfig, logger *zap.Logger) *Handler {
	if cfg == nil {
		cfg = &core.DefaultMatchConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ranker: ranker, molt: molt, cfg: cfg, logger: logger}
}

// MatchesResponse 是 GET /v1/agents/{agentID}/matches 的响应。
type MatchesResponse struct {
	AgentID    string                `json:"agentId"`
	Candidates []core.MatchCandidate `json:"candidates"`
}

// MoltMatchRequest 是 POST /v1/agents/{agentID}/moltmatch 的请求体。
type MoltMatchRequest struct {
	AutonomyLevel *int `json:"autonomyLevel"`
}

// Routes 返回挂好中间件的路由。
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Route("/v1/agents/{agentID}", func(r chi.Router) {
		r.Get("/matches", h.Matches)
		if h.molt != nil {
			r.Post("/moltmatch", h.MoltMatch)
		}
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Matches 处理 GET /v1/agents/{agentID}/matches?limit=N。
// limit 缺省为 DefaultLimit，超过 MaxLimit 时截断，负数或非整数返回 400。
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	limit := h.cfg.DefaultLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondProblem(w, http.StatusBadRequest, "Bad Request", core.ErrorCodeInvalidInput,
				"limit must be a non-negative integer")
			return
		}
		limit = core.ClampLimit(n, h.cfg.MaxLimit())
	}

	candidates, err := h.ranker.FindTopMatches(r.Context(), agentID, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, MatchesResponse{AgentID: agentID, Candidates: candidates})
}

// MoltMatch 处理 POST /v1/agents/{agentID}/moltmatch。
func (h *Handler) MoltMatch(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var req MoltMatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.respondProblem(w, http.StatusBadRequest, "Bad Request", core.ErrorCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.AutonomyLevel == nil {
		h.respondProblem(w, http.StatusBadRequest, "Bad Request", core.ErrorCodeInvalidInput, "autonomyLevel is required")
		return
	}

	res, err := h.molt.Run(r.Context(), agentID, *req.AutonomyLevel)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if res.Match != nil {
		h.logger.Info("moltmatch created",
			zap.String("agent_id", agentID),
			zap.String("partner_id", res.Match.Agent2ID),
			zap.Float64("score", res.Match.CompatibilityScore),
			zap.String("status", string(res.Match.Status)))
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
