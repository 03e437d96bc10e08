package domain

import (
	"time"

	"github.com/google/uuid"
)

type RelationKind string

const (
	RelationReferences  RelationKind = "references"
	RelationSameDomain  RelationKind = "same_domain"
	RelationContradicts RelationKind = "contradicts"
)

// SourceRelationship links two cited sources. Strength is normalized to [0,1]
// across the relationships of one chain.
type SourceRelationship struct {
	FromID   string       `json:"from_id"`
	ToID     string       `json:"to_id"`
	Kind     RelationKind `json:"kind"`
	Strength float64      `json:"strength"`
}

// ProvenanceChain records which sources contributed to one response and how
// they relate. Created once per response and immutable after creation;
// citation markers are never renumbered.
type ProvenanceChain struct {
	ResponseID    uuid.UUID            `json:"response_id"`
	Sources       []ContextSource      `json:"sources"`
	Relationships []SourceRelationship `json:"relationships,omitempty"`
	SynthesisPath []string             `json:"synthesis_path,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ResponseFeedback is the sink for future ranking-weight tuning; it is stored
// and acknowledged but not processed further by this core.
type ResponseFeedback struct {
	ID         uuid.UUID `json:"id"`
	ResponseID uuid.UUID `json:"response_id"`
	Helpful    bool      `json:"helpful"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
