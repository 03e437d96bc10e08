package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type ValueStore struct {
	db *pgxpool.Pool
}

func NewValueStore(db *pgxpool.Pool) *ValueStore {
	return &ValueStore{db: db}
}

func (s *ValueStore) CoreValues(ctx context.Context, userID uuid.UUID) ([]domain.CoreValue, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, category, label, embedding
		 FROM core_values
		 WHERE user_id = $1
		 ORDER BY category, label`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("core values query: %w", err)
	}
	defer rows.Close()

	var values []domain.CoreValue
	for rows.Next() {
		var v domain.CoreValue
		var embedding *pgvector.Vector
		if err := rows.Scan(&v.ID, &v.UserID, &v.Category, &v.Label, &embedding); err != nil {
			return nil, fmt.Errorf("scan core value: %w", err)
		}
		if embedding != nil {
			v.Embedding = embedding.Slice()
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// CandorEnabled reports the user's opt-in preference. A user without a
// preference row defaults to off.
func (s *ValueStore) CandorEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(ctx,
		`SELECT candor_enabled FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return enabled, nil
}
