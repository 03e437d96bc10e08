package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

// ContextSynthesizer reduces the ranked list to a bounded bundle: threshold,
// cap, group by domain, and aggregate confidence.
type ContextSynthesizer struct {
	knowledge  domain.KnowledgeStore
	threshold  float64
	maxSources int
	logger     *zap.Logger
}

func NewContextSynthesizer(knowledge domain.KnowledgeStore, threshold float64, maxSources int, logger *zap.Logger) *ContextSynthesizer {
	return &ContextSynthesizer{
		knowledge:  knowledge,
		threshold:  threshold,
		maxSources: maxSources,
		logger:     logger,
	}
}

func (s *ContextSynthesizer) Synthesize(ctx context.Context, ranked []domain.ContextSource) *domain.ContextBundle {
	var retained []domain.ContextSource
	for _, src := range ranked {
		if src.CombinedScore <= s.threshold {
			continue
		}
		retained = append(retained, src)
		if len(retained) >= s.maxSources {
			break
		}
	}

	if len(retained) == 0 {
		return &domain.ContextBundle{
			Confidence:          0,
			InsufficientContext: true,
		}
	}

	groups := groupByDomain(retained)
	s.resolveLabels(ctx, groups)

	var sum float64
	for _, src := range retained {
		sum += src.CombinedScore
	}

	bundle := &domain.ContextBundle{
		Sources:    retained,
		Confidence: sum / float64(len(retained)),
	}
	for _, g := range groups {
		bundle.Groups = append(bundle.Groups, *g)
		bundle.SynthesisPath = append(bundle.SynthesisPath, synthesisPath(g))
	}
	return bundle
}

// groupByDomain buckets retained sources by owning domain in relevance order;
// external references share one nil-domain bucket.
func groupByDomain(sources []domain.ContextSource) []*domain.SourceGroup {
	var groups []*domain.SourceGroup
	byDomain := make(map[uuid.UUID]*domain.SourceGroup)
	var external *domain.SourceGroup

	for _, src := range sources {
		if src.DomainID == nil {
			if external == nil {
				external = &domain.SourceGroup{Label: "external"}
				groups = append(groups, external)
			}
			external.SourceIDs = append(external.SourceIDs, src.ID)
			continue
		}

		g, ok := byDomain[*src.DomainID]
		if !ok {
			id := *src.DomainID
			g = &domain.SourceGroup{DomainID: &id}
			byDomain[id] = g
			groups = append(groups, g)
		}
		g.SourceIDs = append(g.SourceIDs, src.ID)
	}
	return groups
}

func (s *ContextSynthesizer) resolveLabels(ctx context.Context, groups []*domain.SourceGroup) {
	var ids []uuid.UUID
	for _, g := range groups {
		if g.DomainID != nil {
			ids = append(ids, *g.DomainID)
		}
	}
	if len(ids) == 0 {
		return
	}

	names, err := s.knowledge.DomainNames(ctx, ids)
	if err != nil {
		s.logger.Warn("domain names unavailable, falling back to ids", zap.Error(err))
		names = map[uuid.UUID]string{}
	}
	for _, g := range groups {
		if g.DomainID == nil {
			continue
		}
		if name, ok := names[*g.DomainID]; ok {
			g.Label = name
		} else {
			g.Label = g.DomainID.String()
		}
	}
}

func synthesisPath(g *domain.SourceGroup) string {
	n := len(g.SourceIDs)
	if g.DomainID == nil {
		if n == 1 {
			return "drew from 1 external reference"
		}
		return fmt.Sprintf("drew from %d external references", n)
	}
	if n == 1 {
		return fmt.Sprintf("drew from 1 source in domain %s", g.Label)
	}
	return fmt.Sprintf("drew from %d sources in domain %s", n, g.Label)
}
