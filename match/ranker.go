// Package match 组装匹配链路：读取向量与关系数据，经 Pipeline 打分排序，返回 Top-N 候选。
//
// 核心只读不写、不记日志、不重试；失败以 core.DomainError 返回：
//   - INVALID_INPUT：参数在任何 I/O 之前被拒绝
//   - NO_PROFILE_SIGNAL：请求方还没有取向向量（与“没有候选”不同）
//   - UNAVAILABLE：存储读取失败或超时，不会被吞成空结果
package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gyeol/moltmatch/core"
	"github.com/gyeol/moltmatch/filter"
	"github.com/gyeol/moltmatch/pipeline"
	"github.com/gyeol/moltmatch/pkg/utils"
	"github.com/gyeol/moltmatch/rank"
	"github.com/gyeol/moltmatch/recall"
	"github.com/gyeol/moltmatch/rerank"
	"github.com/gyeol/moltmatch/scorer"
)

// Ranker 为请求方计算 Top-N 兼容候选。
//
// 三个读取（请求方向量、排除集合、候选池）互不依赖，并发发出；
// 结果只取决于读到的数据快照，与读取完成的先后无关。
type Ranker struct {
	Vectors   core.TasteVectorStore
	Relations core.RelationshipFilter // 为 nil 时只排除请求方自己

	// Scorer 为 nil 时使用 scorer.Default()
	Scorer scorer.Scorer

	// Eligibility 是可选的 CEL 规则，只能进一步剔除候选
	Eligibility *filter.ExprFilter

	PoolSize    int
	PoolCeiling int
	MaxLimit    int           // > 0 时把 limit 截到此值
	Timeout     time.Duration // > 0 时为单次排序设置超时
	StrictIDs   bool          // agent id 必须是 UUID
}

// NewRanker 用 cfg 的默认值创建 Ranker；cfg 为 nil 时使用 core.DefaultMatchConfig。
func NewRanker(vectors core.TasteVectorStore, relations core.RelationshipFilter, cfg core.MatchConfig) *Ranker {
	if cfg == nil {
		cfg = &core.DefaultMatchConfig{}
	}
	return &Ranker{
		Vectors:     vectors,
		Relations:   relations,
		Scorer:      scorer.Default(),
		PoolSize:    cfg.PoolSize(),
		PoolCeiling: cfg.PoolCeiling(),
		MaxLimit:    cfg.MaxLimit(),
		Timeout:     cfg.DefaultTimeout(),
	}
}

// FindTopMatches 返回按兼容度降序（同分按 agent id 升序）的至多 limit 个候选。
// limit 为 0 时不做任何 I/O，直接返回空列表。
func (r *Ranker) FindTopMatches(ctx context.Context, agentID string, limit int) ([]core.MatchCandidate, error) {
	items, err := r.Rank(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}
	return core.CandidatesFromItems(items), nil
}

// Rank 与 FindTopMatches 相同，但返回带 Labels 的 Item，便于 explain。
func (r *Ranker) Rank(ctx context.Context, agentID string, limit int) ([]*core.Item, error) {
	if err := core.ValidateAgentID(agentID, r.StrictIDs); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, core.ErrInvalidInput("limit must not be negative, got " + strconv.Itoa(limit))
	}
	if r.MaxLimit > 0 && limit > r.MaxLimit {
		limit = r.MaxLimit
	}
	if limit == 0 {
		return []*core.Item{}, nil
	}
	if r.Vectors == nil {
		return nil, core.NewDomainError(core.ModuleMatch, core.ErrorCodeInternalError, "match: ranker has no taste vector store")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	mctx, err := r.load(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}

	items, err := r.Pipeline(limit).Run(ctx, mctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify("pipeline", err)
		}
		if core.IsDomainError(err) {
			return nil, err
		}
		return nil, core.WrapDomainError(core.ModuleMatch, core.ErrorCodeInternalError, "match: pipeline failed", err)
	}
	return items, nil
}

// Pipeline 返回一次排序使用的节点链。
func (r *Ranker) Pipeline(limit int) *pipeline.Pipeline {
	filters := []filter.Filter{&filter.ExclusionFilter{}}
	if r.Eligibility != nil {
		filters = append(filters, r.Eligibility)
	}
	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.PoolRecall{},
			&filter.FilterNode{Filters: filters},
			&rank.CompatibilityNode{Scorer: r.Scorer},
			&rerank.SortNode{},
			&rerank.TopNNode{N: limit},
		},
	}
}

// load 并发读取三份数据。三个读取都结束后才判定结果，错误优先级与顺序执行一致：
// 向量读取失败 > 向量不存在 > 排除集合/候选池读取失败。
func (r *Ranker) load(ctx context.Context, agentID string, limit int) (*core.MatchContext, error) {
	var (
		g                        errgroup.Group
		vector                   *core.TasteVector
		exclusions               core.ExclusionSet
		pool                     []*core.TasteVector
		vecErr, exclErr, poolErr error
	)

	g.Go(func() error {
		vector, vecErr = r.Vectors.GetTasteVector(ctx, agentID)
		return vecErr
	})
	g.Go(func() error {
		if r.Relations == nil {
			return nil
		}
		exclusions, exclErr = r.Relations.GetExclusionSet(ctx, agentID)
		return exclErr
	})
	g.Go(func() error {
		size := core.PoolSizeFor(limit, r.PoolSize, r.PoolCeiling)
		pool, poolErr = r.Vectors.GetCandidatePool(ctx, agentID, size)
		return poolErr
	})
	_ = g.Wait()

	switch {
	case vecErr != nil:
		return nil, classify("taste vector", vecErr)
	case vector == nil:
		return nil, core.ErrNoProfileSignal(agentID)
	case exclErr != nil:
		return nil, classify("exclusion set", exclErr)
	case poolErr != nil:
		return nil, classify("candidate pool", poolErr)
	}
	if err := vector.Validate(); err != nil {
		return nil, err
	}

	set := core.NewExclusionSet(agentID)
	set.Merge(exclusions)

	mctx := &core.MatchContext{
		AgentID:    agentID,
		Vector:     vector,
		Exclusions: set,
		Pool:       make([]*core.TasteVector, 0, len(pool)),
		Params:     map[string]any{"limit": limit},
	}
	invalid := 0
	for _, v := range pool {
		if v.Validate() != nil {
			invalid++
			continue
		}
		mctx.Pool = append(mctx.Pool, v)
	}
	if invalid > 0 {
		mctx.PutLabel(utils.LabelPoolInvalid, utils.NewLabel(strconv.Itoa(invalid), "match"))
	}
	return mctx, nil
}

// classify 保留已有的领域错误，其余一律视为上游不可用。
func classify(op string, err error) error {
	if de := core.GetDomainError(err); de != nil && de.Module != core.ModuleStore {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.ErrUpstreamUnavailable(op, fmt.Errorf("timed out or canceled: %w", err))
	}
	return core.ErrUpstreamUnavailable(op, err)
}
