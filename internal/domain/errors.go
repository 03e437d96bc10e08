package domain

import "errors"

// ErrorKind classifies terminal stream errors for the caller.
type ErrorKind string

const (
	ErrKindInvalidInput      ErrorKind = "invalid_input"
	ErrKindEmbeddingFailure  ErrorKind = "embedding_failure"
	ErrKindGenerationFailure ErrorKind = "generation_failure"
	ErrKindCancelled         ErrorKind = "cancelled"
)

var (
	// Validation errors are rejected synchronously, before the stream starts.
	ErrQueryEmpty          = errors.New("query must not be empty")
	ErrQueryTooLong        = errors.New("query exceeds maximum length")
	ErrUnknownConversation = errors.New("unknown conversation")

	// ErrEmbeddingFailure is fatal for the request once retries are exhausted.
	ErrEmbeddingFailure = errors.New("embedding failed after retries")

	// ErrGenerationFailure is surfaced after sources were already emitted.
	ErrGenerationFailure = errors.New("generation failed")
)
