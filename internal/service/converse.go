package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"github.com/scottkmcmillan/relate/internal/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConverseRequest is one validated user query against a conversation.
type ConverseRequest struct {
	UserID         uuid.UUID
	ConversationID uuid.UUID
	Query          string
}

// ConverseService orchestrates the full pipeline: analysis, concurrent candor
// detection and retrieval, ranking, synthesis, provenance, and streamed
// generation. Input validation is synchronous; everything after runs behind
// the returned stream.
type ConverseService struct {
	analyzer      *QueryAnalyzer
	detector      *CandorDetector
	retrieval     *RetrievalEngine
	ranker        *HybridRanker
	synthesizer   *ContextSynthesizer
	provenance    *ProvenanceTracker
	conversations domain.ConversationStore
	generator     domain.GenerationClient
	logger        *zap.Logger
}

func NewConverseService(
	analyzer *QueryAnalyzer,
	detector *CandorDetector,
	retrieval *RetrievalEngine,
	ranker *HybridRanker,
	synthesizer *ContextSynthesizer,
	provenance *ProvenanceTracker,
	conversations domain.ConversationStore,
	generator domain.GenerationClient,
	logger *zap.Logger,
) *ConverseService {
	return &ConverseService{
		analyzer:      analyzer,
		detector:      detector,
		retrieval:     retrieval,
		ranker:        ranker,
		synthesizer:   synthesizer,
		provenance:    provenance,
		conversations: conversations,
		generator:     generator,
		logger:        logger,
	}
}

// Converse validates the request and starts the response pipeline. Validation
// failures return an error before any stream exists; after that, all outcomes
// are delivered as stream events.
func (s *ConverseService) Converse(ctx context.Context, req ConverseRequest) (*StreamCoordinator, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrQueryEmpty
	}
	if len(req.Query) > maxQueryLength {
		return nil, domain.ErrQueryTooLong
	}
	ok, err := s.conversations.Exists(ctx, req.ConversationID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrUnknownConversation
	}

	coord := NewStreamCoordinator(s.logger)
	go s.run(ctx, req, coord)
	return coord, nil
}

func (s *ConverseService) run(ctx context.Context, req ConverseRequest, coord *StreamCoordinator) {
	analyzed, err := s.analyzer.Analyze(ctx, req.Query)
	if err != nil {
		if ctx.Err() != nil {
			coord.Cancel()
			return
		}
		s.logger.Error("query analysis failed", zap.Error(err))
		coord.Fail(ctx, domain.ErrKindEmbeddingFailure, "could not analyze query")
		return
	}

	// Candor detection reads conversation history, so it runs before the
	// current turn is appended. Retrieval is independent of it.
	var (
		candor    domain.CandorDecision
		retrieved *RetrievalResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var derr error
		candor, derr = s.detector.Detect(gctx, req.UserID, req.ConversationID, analyzed)
		return derr
	})
	g.Go(func() error {
		retrieved = s.retrieval.Retrieve(gctx, req.UserID, analyzed)
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			coord.Cancel()
			return
		}
		s.logger.Warn("candor detection failed, continuing without it", zap.Error(err))
		candor = domain.CandorDecision{Activate: false}
	}

	s.appendTurn(ctx, req, domain.TurnRoleUser, analyzed.Text, analyzed.Embedding)

	ranked := s.ranker.Rank(ctx, retrieved.Candidates)
	bundle := s.synthesizer.Synthesize(ctx, ranked)

	responseID := uuid.New()
	chain := s.provenance.Build(responseID, bundle)

	for _, src := range bundle.Sources {
		if err := coord.EmitSource(ctx, src); err != nil {
			coord.Cancel()
			return
		}
	}

	prompt := llm.BuildPrompt(analyzed.Text, *bundle, candor)
	deltas, err := s.generator.Generate(ctx, prompt, *bundle)
	if err != nil {
		if ctx.Err() != nil {
			coord.Cancel()
			return
		}
		s.logger.Error("generation failed to start", zap.Error(err))
		coord.Fail(ctx, domain.ErrKindGenerationFailure, "response generation failed")
		s.provenance.Persist(context.WithoutCancel(ctx), chain)
		return
	}

	lateExternal := false
	recoveryPending := branchDegraded(retrieved.Degraded, domain.BranchExternal)
	for delta := range deltas {
		if delta.Err != nil {
			if ctx.Err() != nil {
				coord.Cancel()
				return
			}
			s.logger.Error("generation failed mid-stream", zap.Error(delta.Err))
			coord.Fail(ctx, domain.ErrKindGenerationFailure, "response generation failed")
			s.provenance.Persist(context.WithoutCancel(ctx), chain)
			return
		}
		if err := coord.EmitDelta(ctx, delta.Text); err != nil {
			coord.Cancel()
			return
		}
		if recoveryPending {
			recoveryPending = false
			if src, ok := s.recoverLateReference(ctx, analyzed); ok {
				appended := s.provenance.Append(chain, src)
				if err := coord.EmitLateSource(ctx, appended); err != nil {
					coord.Cancel()
					return
				}
				lateExternal = true
			}
		}
	}

	// Persistence uses a detached context so a consumer disconnect right at
	// the end does not lose the record.
	tail := context.WithoutCancel(ctx)
	s.appendTurn(tail, req, domain.TurnRoleAssistant, coord.Text(), nil)
	s.provenance.Persist(tail, chain)

	meta := domain.ResponseMetadata{
		ResponseID:             responseID,
		Confidence:             bundle.Confidence,
		InsufficientContext:    bundle.InsufficientContext,
		Candor:                 candor,
		DegradedBranches:       retrieved.Degraded,
		UsedExternalReferences: usedExternal(bundle.Sources) || lateExternal,
	}
	if err := coord.Complete(ctx, meta); err != nil {
		coord.Cancel()
	}
}

func (s *ConverseService) appendTurn(ctx context.Context, req ConverseRequest, role domain.TurnRole, text string, embedding []float32) {
	if text == "" {
		return
	}
	turn := &domain.ConversationTurn{
		ID:             uuid.New(),
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Role:           role,
		Text:           text,
		Embedding:      embedding,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.conversations.AppendTurn(ctx, turn); err != nil {
		s.logger.Warn("failed to persist conversation turn",
			zap.String("role", string(role)), zap.Error(err))
	}
}

// recoverLateReference retries the degraded external branch while content is
// streaming. The recovered source is scored the way the ranker scores
// external references and must clear the synthesis threshold to earn a
// citation.
func (s *ConverseService) recoverLateReference(ctx context.Context, analyzed *AnalyzedQuery) (domain.ContextSource, bool) {
	src, ok := s.retrieval.RecoverExternal(ctx, analyzed.Tokens)
	if !ok {
		return domain.ContextSource{}, false
	}
	src.GraphScore = 0
	src.CombinedScore = s.ranker.vectorWeight * src.VectorScore
	if src.CombinedScore <= s.synthesizer.threshold {
		return domain.ContextSource{}, false
	}
	return src, true
}

func branchDegraded(degraded []domain.RetrievalBranch, branch domain.RetrievalBranch) bool {
	for _, b := range degraded {
		if b == branch {
			return true
		}
	}
	return false
}

func usedExternal(sources []domain.ContextSource) bool {
	for _, src := range sources {
		if src.Kind == domain.SourceKindExternalReference {
			return true
		}
	}
	return false
}
