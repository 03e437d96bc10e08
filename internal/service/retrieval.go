package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	domainBranchTopK  = 20
	contentBranchTopK = 30
)

// RetrievalResult carries the merged candidates plus the branches that failed
// or timed out. A degraded branch contributes exactly zero candidates.
type RetrievalResult struct {
	Candidates domain.CandidateSet
	Degraded   []domain.RetrievalBranch
}

// RetrievalEngine fans out the three retrieval branches concurrently. Each
// branch enforces the per-user scope and times out independently; partial
// failure never fails the request.
type RetrievalEngine struct {
	knowledge     domain.KnowledgeStore
	refs          domain.ReferenceLookup
	branchTimeout time.Duration
	logger        *zap.Logger
}

func NewRetrievalEngine(knowledge domain.KnowledgeStore, refs domain.ReferenceLookup, branchTimeout time.Duration, logger *zap.Logger) *RetrievalEngine {
	return &RetrievalEngine{
		knowledge:     knowledge,
		refs:          refs,
		branchTimeout: branchTimeout,
		logger:        logger,
	}
}

type branchOutput struct {
	sources []domain.ContextSource
	failed  bool
}

func (e *RetrievalEngine) Retrieve(ctx context.Context, userID uuid.UUID, q *AnalyzedQuery) *RetrievalResult {
	var outputs [3]branchOutput

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		outputs[0] = e.runBranch(gctx, domain.BranchDomain, func(bctx context.Context) ([]domain.ContextSource, error) {
			return e.domainBranch(bctx, userID, q.Embedding)
		})
		return nil
	})
	g.Go(func() error {
		outputs[1] = e.runBranch(gctx, domain.BranchContent, func(bctx context.Context) ([]domain.ContextSource, error) {
			return e.contentBranch(bctx, userID, q.Embedding)
		})
		return nil
	})
	g.Go(func() error {
		outputs[2] = e.runBranch(gctx, domain.BranchExternal, func(bctx context.Context) ([]domain.ContextSource, error) {
			return e.externalBranch(bctx, q.Tokens)
		})
		return nil
	})
	_ = g.Wait()

	result := &RetrievalResult{Candidates: make(domain.CandidateSet)}
	branches := []domain.RetrievalBranch{domain.BranchDomain, domain.BranchContent, domain.BranchExternal}
	for i, out := range outputs {
		if out.failed {
			result.Degraded = append(result.Degraded, branches[i])
			continue
		}
		for _, src := range out.sources {
			result.Candidates.Add(src)
		}
	}
	return result
}

// RecoverExternal retries the external branch once after initial retrieval
// degraded it, returning the best-scoring reference. The reference cache
// snapshot may have reloaded since the branch timed out, so a response
// already streaming can still pick up a citation. Failure is absorbed the
// same way as during retrieval.
func (e *RetrievalEngine) RecoverExternal(ctx context.Context, keywords []string) (domain.ContextSource, bool) {
	bctx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	sources, err := e.externalBranch(bctx, keywords)
	if err != nil {
		e.logger.Debug("external branch recovery failed", zap.Error(err))
		return domain.ContextSource{}, false
	}
	if len(sources) == 0 {
		return domain.ContextSource{}, false
	}

	best := sources[0]
	for _, src := range sources[1:] {
		if src.VectorScore > best.VectorScore {
			best = src
		}
	}
	return best, true
}

// runBranch executes one branch under its own timeout. Errors and timeouts
// are absorbed here: logged, marked degraded, never bubbled.
func (e *RetrievalEngine) runBranch(ctx context.Context, branch domain.RetrievalBranch, fn func(context.Context) ([]domain.ContextSource, error)) branchOutput {
	bctx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	sources, err := fn(bctx)
	if err != nil {
		e.logger.Warn("retrieval branch degraded",
			zap.String("branch", string(branch)),
			zap.Error(err),
		)
		return branchOutput{failed: true}
	}
	return branchOutput{sources: sources}
}

func (e *RetrievalEngine) domainBranch(ctx context.Context, userID uuid.UUID, embedding []float32) ([]domain.ContextSource, error) {
	matches, err := e.knowledge.SearchDomains(ctx, userID, embedding, domainBranchTopK)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.ContextSource, 0, len(matches))
	for _, m := range matches {
		id := m.Domain.ID
		sources = append(sources, domain.ContextSource{
			ID:          "domain:" + id.String(),
			Kind:        domain.SourceKindDomain,
			Title:       m.Domain.Name,
			DomainID:    &id,
			VectorScore: m.Score,
		})
	}
	return sources, nil
}

func (e *RetrievalEngine) contentBranch(ctx context.Context, userID uuid.UUID, embedding []float32) ([]domain.ContextSource, error) {
	matches, err := e.knowledge.SearchContent(ctx, userID, embedding, contentBranchTopK)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.ContextSource, 0, len(matches))
	for _, m := range matches {
		domainID := m.Item.DomainID
		sources = append(sources, domain.ContextSource{
			ID:          "content:" + m.Item.ID.String(),
			Kind:        domain.SourceKindContentItem,
			Title:       m.Item.Title,
			Snippet:     m.Item.Snippet,
			DomainID:    &domainID,
			VectorScore: m.Score,
		})
	}
	return sources, nil
}

func (e *RetrievalEngine) externalBranch(ctx context.Context, keywords []string) ([]domain.ContextSource, error) {
	refs, err := e.refs.Lookup(ctx, keywords)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.ContextSource, 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, domain.ContextSource{
			ID:          "external:" + ref.ID,
			Kind:        domain.SourceKindExternalReference,
			Title:       ref.Title,
			Snippet:     ref.Snippet,
			VectorScore: ref.Score,
		})
	}
	return sources, nil
}
