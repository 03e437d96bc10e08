package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type ProvenanceStore struct {
	db *pgxpool.Pool
}

func NewProvenanceStore(db *pgxpool.Pool) *ProvenanceStore {
	return &ProvenanceStore{db: db}
}

// Create persists the chain and its sources and relationships in one
// transaction. Chains are write-once; a duplicate response id is an error.
func (s *ProvenanceStore) Create(ctx context.Context, chain *domain.ProvenanceChain) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin provenance tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO provenance_chains (response_id, synthesis_path)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		chain.ResponseID, chain.SynthesisPath,
	).Scan(&chain.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert provenance chain: %w", err)
	}

	for _, src := range chain.Sources {
		_, err := tx.Exec(ctx,
			`INSERT INTO provenance_sources
			   (response_id, source_id, kind, title, snippet, domain_id,
			    vector_score, graph_score, combined_score, citation_marker)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			chain.ResponseID, src.ID, src.Kind, src.Title, src.Snippet, src.DomainID,
			src.VectorScore, src.GraphScore, src.CombinedScore, src.CitationMarker,
		)
		if err != nil {
			return fmt.Errorf("insert provenance source: %w", err)
		}
	}

	for _, rel := range chain.Relationships {
		_, err := tx.Exec(ctx,
			`INSERT INTO provenance_relationships (response_id, from_id, to_id, kind, strength)
			 VALUES ($1, $2, $3, $4, $5)`,
			chain.ResponseID, rel.FromID, rel.ToID, rel.Kind, rel.Strength,
		)
		if err != nil {
			return fmt.Errorf("insert provenance relationship: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *ProvenanceStore) GetByResponseID(ctx context.Context, responseID uuid.UUID) (*domain.ProvenanceChain, error) {
	chain := &domain.ProvenanceChain{ResponseID: responseID}

	err := s.db.QueryRow(ctx,
		`SELECT synthesis_path, created_at FROM provenance_chains WHERE response_id = $1`,
		responseID,
	).Scan(&chain.SynthesisPath, &chain.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT source_id, kind, title, snippet, domain_id,
		        vector_score, graph_score, combined_score, citation_marker
		 FROM provenance_sources
		 WHERE response_id = $1
		 ORDER BY citation_marker`,
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("provenance sources query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var src domain.ContextSource
		if err := rows.Scan(&src.ID, &src.Kind, &src.Title, &src.Snippet, &src.DomainID,
			&src.VectorScore, &src.GraphScore, &src.CombinedScore, &src.CitationMarker); err != nil {
			return nil, fmt.Errorf("scan provenance source: %w", err)
		}
		chain.Sources = append(chain.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	relRows, err := s.db.Query(ctx,
		`SELECT from_id, to_id, kind, strength
		 FROM provenance_relationships
		 WHERE response_id = $1
		 ORDER BY from_id, to_id`,
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("provenance relationships query: %w", err)
	}
	defer relRows.Close()

	for relRows.Next() {
		var rel domain.SourceRelationship
		if err := relRows.Scan(&rel.FromID, &rel.ToID, &rel.Kind, &rel.Strength); err != nil {
			return nil, fmt.Errorf("scan provenance relationship: %w", err)
		}
		chain.Relationships = append(chain.Relationships, rel)
	}
	return chain, relRows.Err()
}
