package service

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

func TestNewHybridRanker_InvalidWeights(t *testing.T) {
	if _, err := NewHybridRanker(&mockGraphStore{}, 0.7, 0.4, zap.NewNop()); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
	if _, err := NewHybridRanker(&mockGraphStore{}, 0.6, 0.4, zap.NewNop()); err != nil {
		t.Fatalf("expected valid weights to pass, got %v", err)
	}
}

func TestRank_CombinesScores(t *testing.T) {
	domainA := uuid.New()
	domainB := uuid.New()
	graph := &mockGraphStore{links: []domain.DomainLink{
		{DomainA: domainA, DomainB: domainB, Weight: 1.0},
	}}
	r, err := NewHybridRanker(graph, 0.6, 0.4, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	set := make(domain.CandidateSet)
	set.Add(domain.ContextSource{ID: "domain:" + domainA.String(), Kind: domain.SourceKindDomain, DomainID: &domainA, VectorScore: 0.9})
	set.Add(domain.ContextSource{ID: "domain:" + domainB.String(), Kind: domain.SourceKindDomain, DomainID: &domainB, VectorScore: 0.5})
	set.Add(domain.ContextSource{ID: "external:ref-1", Kind: domain.SourceKindExternalReference, VectorScore: 0.95})

	ranked := r.Rank(context.Background(), set)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked sources, got %d", len(ranked))
	}

	// Symmetric two-node graph: both domains normalize to centrality 1.0.
	if got := ranked[0].CombinedScore; math.Abs(got-0.94) > 1e-9 {
		t.Fatalf("expected top combined score 0.94, got %g", got)
	}
	if ranked[0].DomainID == nil || *ranked[0].DomainID != domainA {
		t.Fatalf("expected domain A first, got %s", ranked[0].ID)
	}
	if ranked[1].DomainID == nil || *ranked[1].DomainID != domainB {
		t.Fatalf("expected domain B second, got %s", ranked[1].ID)
	}

	// External references never earn graph score.
	ext := ranked[2]
	if ext.GraphScore != 0 {
		t.Fatalf("expected zero graph score for external reference, got %g", ext.GraphScore)
	}
	if math.Abs(ext.CombinedScore-0.57) > 1e-9 {
		t.Fatalf("expected external combined score 0.57, got %g", ext.CombinedScore)
	}
}

func TestRank_GraphFailureDegrades(t *testing.T) {
	domainA := uuid.New()
	graph := &mockGraphStore{err: errors.New("graph offline")}
	r, _ := NewHybridRanker(graph, 0.6, 0.4, zap.NewNop())

	set := make(domain.CandidateSet)
	set.Add(domain.ContextSource{ID: "domain:" + domainA.String(), Kind: domain.SourceKindDomain, DomainID: &domainA, VectorScore: 0.8})

	ranked := r.Rank(context.Background(), set)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked source, got %d", len(ranked))
	}
	if ranked[0].GraphScore != 0 {
		t.Fatalf("expected zero graph score on graph failure, got %g", ranked[0].GraphScore)
	}
	if math.Abs(ranked[0].CombinedScore-0.48) > 1e-9 {
		t.Fatalf("expected combined score 0.48, got %g", ranked[0].CombinedScore)
	}
}

func TestSortSources_TieBreakByID(t *testing.T) {
	sources := []domain.ContextSource{
		{ID: "content:b", CombinedScore: 0.62},
		{ID: "content:a", CombinedScore: 0.62},
		{ID: "external:z", CombinedScore: 0.22},
	}
	sortSources(sources)

	ids := []string{sources[0].ID, sources[1].ID, sources[2].ID}
	want := []string{"content:a", "content:b", "external:z"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected order %v, got %v", want, ids)
	}
}

func TestCombineSortSynthesize_EndToEnd(t *testing.T) {
	domainID := uuid.New()
	knowledge := newMockKnowledgeStore()
	knowledge.names[domainID] = "Career"

	sources := []domain.ContextSource{
		{ID: "content:a", Kind: domain.SourceKindContentItem, DomainID: &domainID, VectorScore: 0.9, GraphScore: 0.2},
		{ID: "content:b", Kind: domain.SourceKindContentItem, DomainID: &domainID, VectorScore: 0.5, GraphScore: 0.8},
		{ID: "content:c", Kind: domain.SourceKindContentItem, DomainID: &domainID, VectorScore: 0.3, GraphScore: 0.1},
	}

	combineScores(sources, 0.6, 0.4)
	sortSources(sources)

	// 0.6*0.9+0.4*0.2 and 0.6*0.5+0.4*0.8 land on the same float64, so the
	// leading pair is an exact tie resolved by id; the third scores 0.22.
	if sources[0].CombinedScore != sources[1].CombinedScore {
		t.Fatalf("expected exact tie, got %v vs %v", sources[0].CombinedScore, sources[1].CombinedScore)
	}
	if math.Abs(sources[0].CombinedScore-0.62) > 1e-9 {
		t.Fatalf("expected combined score 0.62, got %g", sources[0].CombinedScore)
	}
	if sources[0].ID != "content:a" || sources[1].ID != "content:b" {
		t.Fatalf("expected tie broken by id, got %s then %s", sources[0].ID, sources[1].ID)
	}
	if sources[2].ID != "content:c" || math.Abs(sources[2].CombinedScore-0.22) > 1e-9 {
		t.Fatalf("expected content:c last at 0.22, got %s at %g", sources[2].ID, sources[2].CombinedScore)
	}

	s := NewContextSynthesizer(knowledge, 0.4, 8, zap.NewNop())
	bundle := s.Synthesize(context.Background(), sources)

	if len(bundle.Sources) != 2 {
		t.Fatalf("expected 0.22 dropped by threshold, got %d sources", len(bundle.Sources))
	}
	if bundle.Sources[0].ID != "content:a" || bundle.Sources[1].ID != "content:b" {
		t.Fatalf("unexpected retained order: %+v", bundle.Sources)
	}
	if math.Abs(bundle.Confidence-0.62) > 1e-9 {
		t.Fatalf("expected confidence 0.62, got %g", bundle.Confidence)
	}
}

func TestComputeCentrality_FewerThanTwoNodes(t *testing.T) {
	id := uuid.New()
	scores := computeCentrality([]uuid.UUID{id}, []domain.DomainLink{})
	if scores[id] != 0 {
		t.Fatalf("expected zero centrality for single node, got %g", scores[id])
	}
}

func TestComputeCentrality_NoEdges(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	scores := computeCentrality([]uuid.UUID{a, b}, nil)
	if scores[a] != 0 || scores[b] != 0 {
		t.Fatalf("expected zero centrality without edges, got %v", scores)
	}
}

func TestComputeCentrality_Deterministic(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	links := []domain.DomainLink{
		{DomainA: a, DomainB: b, Weight: 2.0},
		{DomainA: b, DomainB: c, Weight: 1.0},
	}

	first := computeCentrality([]uuid.UUID{a, b, c}, links)
	second := computeCentrality([]uuid.UUID{c, a, b}, links)

	for _, id := range []uuid.UUID{a, b, c} {
		if math.Abs(first[id]-second[id]) > 1e-9 {
			t.Fatalf("expected deterministic centrality for %s: %g vs %g", id, first[id], second[id])
		}
	}

	// b sits on both edges and must be the most central node.
	if first[b] != 1.0 {
		t.Fatalf("expected hub normalized to 1.0, got %g", first[b])
	}
	if first[a] >= first[b] || first[c] >= first[b] {
		t.Fatalf("expected hub to dominate: %v", first)
	}
}
