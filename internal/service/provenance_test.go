package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

func TestProvenanceBuild_AssignsMarkersInOrder(t *testing.T) {
	tracker := NewProvenanceTracker(newMockProvenanceStore(), zap.NewNop())

	bundle := &domain.ContextBundle{Sources: []domain.ContextSource{
		{ID: "content:a"},
		{ID: "content:b"},
		{ID: "external:c"},
	}}

	chain := tracker.Build(uuid.New(), bundle)
	for i, src := range chain.Sources {
		if src.CitationMarker != i+1 {
			t.Fatalf("expected marker %d for %s, got %d", i+1, src.ID, src.CitationMarker)
		}
	}
	// The bundle's own sources carry the markers too, for emission.
	if bundle.Sources[2].CitationMarker != 3 {
		t.Fatalf("expected bundle source marker 3, got %d", bundle.Sources[2].CitationMarker)
	}
}

func TestProvenanceAppend_ContinuesSequence(t *testing.T) {
	tracker := NewProvenanceTracker(newMockProvenanceStore(), zap.NewNop())

	bundle := &domain.ContextBundle{Sources: []domain.ContextSource{
		{ID: "content:a"},
		{ID: "content:b"},
	}}
	chain := tracker.Build(uuid.New(), bundle)

	late := tracker.Append(chain, domain.ContextSource{ID: "content:late", Title: "Late find"})
	if late.CitationMarker != 3 {
		t.Fatalf("expected appended marker 3, got %d", late.CitationMarker)
	}
	if chain.Sources[0].CitationMarker != 1 || chain.Sources[1].CitationMarker != 2 {
		t.Fatal("existing markers must never be renumbered")
	}
	if len(chain.Sources) != 3 {
		t.Fatalf("expected 3 sources after append, got %d", len(chain.Sources))
	}
}

func TestProvenanceBuild_SameDomainRelationships(t *testing.T) {
	tracker := NewProvenanceTracker(newMockProvenanceStore(), zap.NewNop())
	domainID := uuid.New()
	other := uuid.New()

	bundle := &domain.ContextBundle{Sources: []domain.ContextSource{
		{ID: "content:a", DomainID: &domainID, CombinedScore: 0.8},
		{ID: "content:b", DomainID: &domainID, CombinedScore: 0.6},
		{ID: "content:c", DomainID: &other, CombinedScore: 0.5},
	}}

	chain := tracker.Build(uuid.New(), bundle)
	if len(chain.Relationships) != 1 {
		t.Fatalf("expected 1 same-domain relationship, got %d", len(chain.Relationships))
	}
	rel := chain.Relationships[0]
	if rel.Kind != domain.RelationSameDomain {
		t.Fatalf("expected same_domain kind, got %s", rel.Kind)
	}
	if rel.FromID != "content:a" || rel.ToID != "content:b" {
		t.Fatalf("unexpected relationship endpoints: %s -> %s", rel.FromID, rel.ToID)
	}
	if rel.Strength != 0.7 {
		t.Fatalf("expected strength 0.7, got %g", rel.Strength)
	}
}

func TestProvenancePersistAndFetch(t *testing.T) {
	ps := newMockProvenanceStore()
	tracker := NewProvenanceTracker(ps, zap.NewNop())

	responseID := uuid.New()
	chain := tracker.Build(responseID, &domain.ContextBundle{Sources: []domain.ContextSource{{ID: "content:a"}}})
	tracker.Persist(context.Background(), chain)

	got, err := tracker.Chain(context.Background(), responseID)
	if err != nil {
		t.Fatalf("expected stored chain, got %v", err)
	}
	if got.ResponseID != responseID || len(got.Sources) != 1 {
		t.Fatalf("unexpected chain: %+v", got)
	}
}
