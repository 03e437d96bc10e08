package domain

import "github.com/google/uuid"

// SourceGroup buckets retained sources by owning domain, in relevance order.
// External references fall into a group with a nil domain id.
type SourceGroup struct {
	DomainID  *uuid.UUID `json:"domain_id,omitempty"`
	Label     string     `json:"label"`
	SourceIDs []string   `json:"source_ids"`
}

// ContextBundle is the bounded output of synthesis. An empty retained set is
// valid: Confidence is 0 and InsufficientContext is set instead of failing.
type ContextBundle struct {
	Sources             []ContextSource `json:"sources"`
	Groups              []SourceGroup   `json:"groups,omitempty"`
	SynthesisPath       []string        `json:"synthesis_path,omitempty"`
	Confidence          float64         `json:"confidence"`
	InsufficientContext bool            `json:"insufficient_context,omitempty"`
}
