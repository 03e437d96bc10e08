package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

// Links returns the weighted adjacency restricted to the given domain ids.
// The weight of an edge is the declared link weight plus the number of
// content items referenced by both endpoints. Edges are undirected; each
// pair appears once with domain_a < domain_b.
func (s *GraphStore) Links(ctx context.Context, domainIDs []uuid.UUID) ([]domain.DomainLink, error) {
	if len(domainIDs) < 2 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`WITH shared AS (
		     SELECT r1.domain_id AS domain_a, r2.domain_id AS domain_b, COUNT(*) AS shared_items
		     FROM content_references r1
		     JOIN content_references r2
		       ON r1.content_id = r2.content_id AND r1.domain_id < r2.domain_id
		     WHERE r1.domain_id = ANY($1) AND r2.domain_id = ANY($1)
		     GROUP BY r1.domain_id, r2.domain_id
		 ),
		 declared AS (
		     SELECT LEAST(domain_a, domain_b) AS domain_a,
		            GREATEST(domain_a, domain_b) AS domain_b,
		            SUM(weight) AS weight
		     FROM domain_links
		     WHERE domain_a = ANY($1) AND domain_b = ANY($1)
		     GROUP BY 1, 2
		 )
		 SELECT COALESCE(d.domain_a, s.domain_a),
		        COALESCE(d.domain_b, s.domain_b),
		        COALESCE(d.weight, 0) + COALESCE(s.shared_items, 0)
		 FROM declared d
		 FULL OUTER JOIN shared s
		   ON d.domain_a = s.domain_a AND d.domain_b = s.domain_b`,
		domainIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("graph links query: %w", err)
	}
	defer rows.Close()

	var links []domain.DomainLink
	for rows.Next() {
		var l domain.DomainLink
		if err := rows.Scan(&l.DomainA, &l.DomainB, &l.Weight); err != nil {
			return nil, fmt.Errorf("scan graph link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
