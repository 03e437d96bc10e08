package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type KnowledgeStore struct {
	db *pgxpool.Pool
}

func NewKnowledgeStore(db *pgxpool.Pool) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

func (s *KnowledgeStore) SearchDomains(ctx context.Context, ownerID uuid.UUID, embedding []float32, k int) ([]domain.DomainMatch, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, name, created_at, updated_at,
		        1 - (embedding <=> $2) AS score
		 FROM knowledge_domains
		 WHERE owner_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		ownerID, vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("domain search query: %w", err)
	}
	defer rows.Close()

	var results []domain.DomainMatch
	for rows.Next() {
		var m domain.DomainMatch
		if err := rows.Scan(&m.Domain.ID, &m.Domain.OwnerID, &m.Domain.Name,
			&m.Domain.CreatedAt, &m.Domain.UpdatedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("scan domain match: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

func (s *KnowledgeStore) SearchContent(ctx context.Context, ownerID uuid.UUID, embedding []float32, k int) ([]domain.ContentMatch, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.domain_id, c.title, c.snippet, c.tags, c.created_at, c.updated_at,
		        1 - (c.embedding <=> $2) AS score
		 FROM content_items c
		 JOIN knowledge_domains d ON c.domain_id = d.id
		 WHERE d.owner_id = $1 AND c.embedding IS NOT NULL
		 ORDER BY c.embedding <=> $2
		 LIMIT $3`,
		ownerID, vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("content search query: %w", err)
	}
	defer rows.Close()

	var results []domain.ContentMatch
	for rows.Next() {
		var m domain.ContentMatch
		if err := rows.Scan(&m.Item.ID, &m.Item.DomainID, &m.Item.Title, &m.Item.Snippet,
			&m.Item.Tags, &m.Item.CreatedAt, &m.Item.UpdatedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("scan content match: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

func (s *KnowledgeStore) DomainNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, name FROM knowledge_domains WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("domain names query: %w", err)
	}
	defer rows.Close()

	names := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan domain name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
