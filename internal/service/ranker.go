package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

const (
	centralityDamping    = 0.85
	centralityIterations = 20
)

// HybridRanker combines per-source vector similarity with graph centrality
// computed over the domains touched by the candidate set.
type HybridRanker struct {
	graph        domain.GraphStore
	vectorWeight float64
	graphWeight  float64
	logger       *zap.Logger
}

// NewHybridRanker validates that the weights sum to 1.0; misconfiguration is
// caught at startup, not per request.
func NewHybridRanker(graph domain.GraphStore, vectorWeight, graphWeight float64, logger *zap.Logger) (*HybridRanker, error) {
	if math.Abs(vectorWeight+graphWeight-1.0) > 1e-9 {
		return nil, fmt.Errorf("ranker weights must sum to 1.0, got vector=%g graph=%g", vectorWeight, graphWeight)
	}
	return &HybridRanker{
		graph:        graph,
		vectorWeight: vectorWeight,
		graphWeight:  graphWeight,
		logger:       logger,
	}, nil
}

// Rank assigns graph scores from domain centrality, computes combined scores,
// and returns sources sorted descending with deterministic id tie-breaks.
// A graph-store failure degrades to zero centrality rather than failing the
// request.
func (r *HybridRanker) Rank(ctx context.Context, set domain.CandidateSet) []domain.ContextSource {
	domainIDs := set.DomainIDs()

	var links []domain.DomainLink
	if len(domainIDs) > 0 {
		var err error
		links, err = r.graph.Links(ctx, domainIDs)
		if err != nil {
			r.logger.Warn("graph links unavailable, ranking on vector scores only", zap.Error(err))
			links = nil
		}
	}

	centrality := computeCentrality(domainIDs, links)

	sources := make([]domain.ContextSource, 0, len(set))
	for _, src := range set {
		switch src.Kind {
		case domain.SourceKindDomain, domain.SourceKindContentItem:
			if src.DomainID != nil {
				src.GraphScore = centrality[*src.DomainID]
			}
		case domain.SourceKindExternalReference:
			// External references have no domain and never earn graph score.
			src.GraphScore = 0
		}
		sources = append(sources, src)
	}

	combineScores(sources, r.vectorWeight, r.graphWeight)
	sortSources(sources)
	return sources
}

// combineScores derives each combined score from the two component scores
// and the configured weights. Component scores are left untouched.
func combineScores(sources []domain.ContextSource, vectorWeight, graphWeight float64) {
	for i := range sources {
		sources[i].CombinedScore = vectorWeight*sources[i].VectorScore + graphWeight*sources[i].GraphScore
	}
}

// sortSources orders descending by combined score, ties broken by source id
// lexicographically for determinism.
func sortSources(sources []domain.ContextSource) {
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].CombinedScore != sources[j].CombinedScore {
			return sources[i].CombinedScore > sources[j].CombinedScore
		}
		return sources[i].ID < sources[j].ID
	})
}

// computeCentrality runs a damped iterative centrality pass over the domain
// adjacency, max-normalized to [0,1]. The graph is held as flat arrays over a
// dense index so the loop is pure arithmetic. A graph with fewer than two
// nodes or no edges yields centrality 0 for every node.
func computeCentrality(domainIDs []uuid.UUID, links []domain.DomainLink) map[uuid.UUID]float64 {
	scores := make(map[uuid.UUID]float64, len(domainIDs))
	for _, id := range domainIDs {
		scores[id] = 0
	}
	if len(domainIDs) < 2 || len(links) == 0 {
		return scores
	}

	index := make(map[uuid.UUID]int, len(domainIDs))
	for i, id := range domainIDs {
		index[id] = i
	}
	n := len(domainIDs)

	type edge struct {
		to     int
		weight float64
	}
	adjacency := make([][]edge, n)
	outWeight := make([]float64, n)
	for _, l := range links {
		a, okA := index[l.DomainA]
		b, okB := index[l.DomainB]
		if !okA || !okB || a == b || l.Weight <= 0 {
			continue
		}
		// Undirected: each endpoint feeds the other.
		adjacency[a] = append(adjacency[a], edge{to: b, weight: l.Weight})
		adjacency[b] = append(adjacency[b], edge{to: a, weight: l.Weight})
		outWeight[a] += l.Weight
		outWeight[b] += l.Weight
	}

	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	base := (1.0 - centralityDamping) / float64(n)
	for iter := 0; iter < centralityIterations; iter++ {
		for i := range next {
			next[i] = base
		}
		for from := 0; from < n; from++ {
			if outWeight[from] == 0 {
				continue
			}
			share := centralityDamping * rank[from] / outWeight[from]
			for _, e := range adjacency[from] {
				next[e.to] += share * e.weight
			}
		}
		rank, next = next, rank
	}

	max := 0.0
	for _, v := range rank {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return scores
	}
	for id, i := range index {
		scores[id] = rank[i] / max
	}
	return scores
}
