package domain

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeDomain is a user-defined topical grouping of content with declared
// weighted links to other domains. Created and updated by the persistence
// layer; read-only here.
type KnowledgeDomain struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentItem is an individual piece of ingested material with a precomputed
// embedding. Embeddings are recomputed externally when content changes.
type ContentItem struct {
	ID        uuid.UUID `json:"id"`
	DomainID  uuid.UUID `json:"domain_id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DomainLink is one weighted edge of the inter-domain graph. Weight combines
// the declared link weight with the number of content items referenced by
// both endpoints.
type DomainLink struct {
	DomainA uuid.UUID `json:"domain_a"`
	DomainB uuid.UUID `json:"domain_b"`
	Weight  float64   `json:"weight"`
}

// ExternalReference is a cached external lookup result keyed by topic keyword.
// Entries are written by the background refresh process outside this core;
// readers only ever see whole entries.
type ExternalReference struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet,omitempty"`
	Score     float64   `json:"score"`
	FetchedAt time.Time `json:"fetched_at"`
}
