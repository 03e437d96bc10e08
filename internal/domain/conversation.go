package domain

import (
	"time"

	"github.com/google/uuid"
)

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

func ValidTurnRole(r string) bool {
	switch TurnRole(r) {
	case TurnRoleUser, TurnRoleAssistant:
		return true
	}
	return false
}

// ConversationTurn is immutable once written. The embedding is optional; turns
// without one are embedded on demand by the candor detector.
type ConversationTurn struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           TurnRole  `json:"role"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

type ValueCategory string

const (
	ValuePrimary      ValueCategory = "primary"
	ValueSecondary    ValueCategory = "secondary"
	ValueAspirational ValueCategory = "aspirational"
)

func ValidValueCategory(c string) bool {
	switch ValueCategory(c) {
	case ValuePrimary, ValueSecondary, ValueAspirational:
		return true
	}
	return false
}

// CoreValue is a user's declared value, owned externally and read-only here.
// Only primary-category values participate in misalignment scoring.
type CoreValue struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Category  ValueCategory `json:"category"`
	Label     string        `json:"label"`
	Embedding []float32     `json:"-"`
}

// User is the authenticated caller. Account management lives outside this
// core; only the API-key lookup is needed here.
type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
