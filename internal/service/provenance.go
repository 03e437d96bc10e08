package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

// ProvenanceTracker assigns citation markers and records how a response was
// assembled. Markers are assigned in final ranked order and are never
// renumbered afterwards; sources appended mid-generation continue the
// sequence.
type ProvenanceTracker struct {
	store  domain.ProvenanceStore
	logger *zap.Logger
}

func NewProvenanceTracker(store domain.ProvenanceStore, logger *zap.Logger) *ProvenanceTracker {
	return &ProvenanceTracker{store: store, logger: logger}
}

// Build constructs the provenance chain for a synthesized bundle. The
// returned chain's sources carry their assigned citation markers; the bundle's
// sources are updated in place so downstream emission sees the markers.
func (t *ProvenanceTracker) Build(responseID uuid.UUID, bundle *domain.ContextBundle) *domain.ProvenanceChain {
	for i := range bundle.Sources {
		bundle.Sources[i].CitationMarker = i + 1
	}

	chain := &domain.ProvenanceChain{
		ResponseID:    responseID,
		Sources:       append([]domain.ContextSource(nil), bundle.Sources...),
		Relationships: inferRelationships(bundle.Sources),
		SynthesisPath: append([]string(nil), bundle.SynthesisPath...),
		CreatedAt:     time.Now().UTC(),
	}
	return chain
}

// Append adds a late-arriving source to an existing chain, assigning the next
// marker in sequence. Existing markers are untouched.
func (t *ProvenanceTracker) Append(chain *domain.ProvenanceChain, source domain.ContextSource) domain.ContextSource {
	source.CitationMarker = len(chain.Sources) + 1
	chain.Relationships = append(chain.Relationships, relateToExisting(chain.Sources, source)...)
	chain.Sources = append(chain.Sources, source)
	chain.SynthesisPath = append(chain.SynthesisPath,
		fmt.Sprintf("appended source %q during generation", source.Title))
	return source
}

// Persist stores the chain. A storage failure is logged but does not fail the
// response; provenance is best effort once the response is underway.
func (t *ProvenanceTracker) Persist(ctx context.Context, chain *domain.ProvenanceChain) {
	if err := t.store.Create(ctx, chain); err != nil {
		t.logger.Error("failed to persist provenance chain",
			zap.String("response_id", chain.ResponseID.String()),
			zap.Error(err))
	}
}

// Chain retrieves a previously recorded chain by response id.
func (t *ProvenanceTracker) Chain(ctx context.Context, responseID uuid.UUID) (*domain.ProvenanceChain, error) {
	return t.store.GetByResponseID(ctx, responseID)
}

// inferRelationships derives same_domain links between sources sharing a
// knowledge domain. Strength is the normalized mean of the pair's combined
// scores, so stronger sources produce stronger links.
func inferRelationships(sources []domain.ContextSource) []domain.SourceRelationship {
	var rels []domain.SourceRelationship
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			a, b := sources[i], sources[j]
			if a.DomainID == nil || b.DomainID == nil || *a.DomainID != *b.DomainID {
				continue
			}
			rels = append(rels, domain.SourceRelationship{
				FromID:   a.ID,
				ToID:     b.ID,
				Kind:     domain.RelationSameDomain,
				Strength: clamp01((a.CombinedScore + b.CombinedScore) / 2),
			})
		}
	}
	return rels
}

func relateToExisting(existing []domain.ContextSource, source domain.ContextSource) []domain.SourceRelationship {
	var rels []domain.SourceRelationship
	for _, e := range existing {
		if e.DomainID == nil || source.DomainID == nil || *e.DomainID != *source.DomainID {
			continue
		}
		rels = append(rels, domain.SourceRelationship{
			FromID:   e.ID,
			ToID:     source.ID,
			Kind:     domain.RelationSameDomain,
			Strength: clamp01((e.CombinedScore + source.CombinedScore) / 2),
		})
	}
	return rels
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
