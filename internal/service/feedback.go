package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"github.com/scottkmcmillan/relate/internal/store"
	"go.uber.org/zap"
)

var (
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrUnknownResponse   = errors.New("unknown response")
	ErrFeedbackConflicts = errors.New("feedback already recorded with different content")
)

// FeedbackService records per-response feedback. Submission is idempotent: an
// identical resubmission returns the stored record, a conflicting one is
// rejected.
type FeedbackService struct {
	feedback   domain.FeedbackStore
	provenance domain.ProvenanceStore
	logger     *zap.Logger
}

func NewFeedbackService(feedback domain.FeedbackStore, provenance domain.ProvenanceStore, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{feedback: feedback, provenance: provenance, logger: logger}
}

func (s *FeedbackService) Submit(ctx context.Context, responseID uuid.UUID, helpful bool, rating int, comment string) (*domain.ResponseFeedback, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	if _, err := s.provenance.GetByResponseID(ctx, responseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownResponse
		}
		return nil, fmt.Errorf("looking up response: %w", err)
	}

	existing, err := s.feedback.GetByResponseID(ctx, responseID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up feedback: %w", err)
	}
	if existing != nil {
		if existing.Helpful == helpful && existing.Rating == rating && existing.Comment == comment {
			return existing, nil
		}
		return nil, ErrFeedbackConflicts
	}

	f := &domain.ResponseFeedback{
		ID:         uuid.New(),
		ResponseID: responseID,
		Helpful:    helpful,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("storing feedback: %w", err)
	}
	s.logger.Info("feedback recorded",
		zap.String("response_id", responseID.String()),
		zap.Int("rating", rating),
		zap.Bool("helpful", helpful))
	return f, nil
}

func (s *FeedbackService) Get(ctx context.Context, responseID uuid.UUID) (*domain.ResponseFeedback, error) {
	return s.feedback.GetByResponseID(ctx, responseID)
}
