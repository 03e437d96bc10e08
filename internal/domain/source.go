package domain

import (
	"github.com/google/uuid"
)

type SourceKind string

const (
	SourceKindDomain            SourceKind = "domain"
	SourceKindContentItem       SourceKind = "content_item"
	SourceKindExternalReference SourceKind = "external_reference"
)

func ValidSourceKind(k string) bool {
	switch SourceKind(k) {
	case SourceKindDomain, SourceKindContentItem, SourceKindExternalReference:
		return true
	}
	return false
}

// ContextSource is one candidate piece of context produced for a single query.
// CombinedScore is derived from the two component scores by the ranker and is
// never mutated afterwards.
type ContextSource struct {
	ID             string     `json:"id"`
	Kind           SourceKind `json:"kind"`
	Title          string     `json:"title"`
	Snippet        string     `json:"snippet,omitempty"`
	DomainID       *uuid.UUID `json:"domain_id,omitempty"`
	VectorScore    float64    `json:"vector_score"`
	GraphScore     float64    `json:"graph_score"`
	CombinedScore  float64    `json:"combined_score"`
	CitationMarker int        `json:"citation_marker,omitempty"`
}

// CandidateSet is the unordered output of retrieval, keyed by source id.
type CandidateSet map[string]ContextSource

// Add merges a source into the set. On id collision the entry with the higher
// vector score wins.
func (cs CandidateSet) Add(src ContextSource) {
	existing, ok := cs[src.ID]
	if !ok || src.VectorScore > existing.VectorScore {
		cs[src.ID] = src
	}
}

// DomainIDs returns the distinct domain ids referenced by the set. Content
// items are attributed to their owning domain; external references carry none.
func (cs CandidateSet) DomainIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, src := range cs {
		if src.DomainID == nil {
			continue
		}
		if !seen[*src.DomainID] {
			seen[*src.DomainID] = true
			ids = append(ids, *src.DomainID)
		}
	}
	return ids
}
