package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type ConversationStore struct {
	db *pgxpool.Pool
}

func NewConversationStore(db *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) Create(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO conversations (id, user_id) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		conversationID, userID,
	)
	return err
}

func (s *ConversationStore) Exists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&exists)
	return exists, err
}

func (s *ConversationStore) AppendTurn(ctx context.Context, t *domain.ConversationTurn) error {
	var embedding *pgvector.Vector
	if len(t.Embedding) > 0 {
		v := pgvector.NewVector(t.Embedding)
		embedding = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO conversation_turns (conversation_id, user_id, role, text, embedding)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.ConversationID, t.UserID, t.Role, t.Text, embedding,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *ConversationStore) RecentTurns(ctx context.Context, conversationID uuid.UUID, n int) ([]domain.ConversationTurn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, user_id, role, text, embedding, created_at
		 FROM conversation_turns
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		conversationID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent turns query: %w", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		var embedding *pgvector.Vector
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.UserID, &t.Role, &t.Text, &embedding, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if embedding != nil {
			t.Embedding = embedding.Slice()
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
