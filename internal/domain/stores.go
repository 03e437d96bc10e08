package domain

import (
	"context"

	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error)
}

// DomainMatch is a nearest-neighbor hit with a similarity score in [0,1].
type DomainMatch struct {
	Domain KnowledgeDomain
	Score  float64
}

type ContentMatch struct {
	Item  ContentItem
	Score float64
}

// KnowledgeStore wraps the external vector index over a user's domains and
// content items. All searches are scoped to the owning user.
type KnowledgeStore interface {
	SearchDomains(ctx context.Context, ownerID uuid.UUID, embedding []float32, k int) ([]DomainMatch, error)
	SearchContent(ctx context.Context, ownerID uuid.UUID, embedding []float32, k int) ([]ContentMatch, error)
	DomainNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// GraphStore exposes the inter-domain adjacency restricted to a set of domain
// ids. Returned weights combine declared links with shared-content counts.
type GraphStore interface {
	Links(ctx context.Context, domainIDs []uuid.UUID) ([]DomainLink, error)
}

// ReferenceLookup serves the time-boxed external-reference cache. A miss
// returns zero results; it never triggers a live fetch.
type ReferenceLookup interface {
	Lookup(ctx context.Context, keywords []string) ([]ExternalReference, error)
}

type ConversationStore interface {
	Create(ctx context.Context, conversationID, userID uuid.UUID) error
	Exists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	AppendTurn(ctx context.Context, t *ConversationTurn) error
	// RecentTurns returns the last n turns in chronological order.
	RecentTurns(ctx context.Context, conversationID uuid.UUID, n int) ([]ConversationTurn, error)
}

// ValueStore reads the user's declared values and candor preference, both
// owned by the excluded persistence layer.
type ValueStore interface {
	CoreValues(ctx context.Context, userID uuid.UUID) ([]CoreValue, error)
	CandorEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
}

type ProvenanceStore interface {
	Create(ctx context.Context, chain *ProvenanceChain) error
	GetByResponseID(ctx context.Context, responseID uuid.UUID) (*ProvenanceChain, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, f *ResponseFeedback) error
	GetByResponseID(ctx context.Context, responseID uuid.UUID) (*ResponseFeedback, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationClient streams content deltas for a prompt grounded in a context
// bundle. The stream honors ctx cancellation mid-generation.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string, bundle ContextBundle) (<-chan GenerationDelta, error)
}
