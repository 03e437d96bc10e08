package domain

import (
	"github.com/google/uuid"
)

type StreamState string

const (
	StateInit            StreamState = "INIT"
	StateEmittingSources StreamState = "EMITTING_SOURCES"
	StateEmittingContent StreamState = "EMITTING_CONTENT"
	StateComplete        StreamState = "COMPLETE"
	StateError           StreamState = "ERROR"
	StateCancelled       StreamState = "CANCELLED"
)

type ResponseEventType string

const (
	EventSource       ResponseEventType = "source"
	EventContentDelta ResponseEventType = "content_delta"
	EventComplete     ResponseEventType = "complete"
	EventError        ResponseEventType = "error"
)

type RetrievalBranch string

const (
	BranchDomain   RetrievalBranch = "domain"
	BranchContent  RetrievalBranch = "content"
	BranchExternal RetrievalBranch = "external"
)

// ResponseMetadata is carried by the terminal complete event.
type ResponseMetadata struct {
	ResponseID             uuid.UUID         `json:"response_id"`
	Confidence             float64           `json:"confidence"`
	SourceCount            int               `json:"source_count"`
	InsufficientContext    bool              `json:"insufficient_context,omitempty"`
	Candor                 CandorDecision    `json:"candor"`
	DegradedBranches       []RetrievalBranch `json:"degraded_branches,omitempty"`
	UsedExternalReferences bool              `json:"used_external_references"`
}

type StreamError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ResponseEvent is the single event type pushed to the transport layer.
// Exactly one of Source, Delta, Metadata, Err is populated, per Type.
type ResponseEvent struct {
	Type     ResponseEventType `json:"type"`
	Source   *ContextSource    `json:"source,omitempty"`
	Delta    string            `json:"delta,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
	Err      *StreamError      `json:"error,omitempty"`
}

// GenerationDelta is one token/content chunk from the generation service.
// A non-nil Err terminates the stream.
type GenerationDelta struct {
	Text string
	Err  error
}
