package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type FeedbackStore struct {
	db *pgxpool.Pool
}

func NewFeedbackStore(db *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) Create(ctx context.Context, f *domain.ResponseFeedback) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO response_feedback (response_id, helpful, rating, comment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		f.ResponseID, f.Helpful, f.Rating, f.Comment,
	).Scan(&f.ID, &f.CreatedAt)
}

func (s *FeedbackStore) GetByResponseID(ctx context.Context, responseID uuid.UUID) (*domain.ResponseFeedback, error) {
	f := &domain.ResponseFeedback{}
	err := s.db.QueryRow(ctx,
		`SELECT id, response_id, helpful, rating, comment, created_at
		 FROM response_feedback WHERE response_id = $1`,
		responseID,
	).Scan(&f.ID, &f.ResponseID, &f.Helpful, &f.Rating, &f.Comment, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
