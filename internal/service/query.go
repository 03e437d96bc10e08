package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

const (
	maxQueryLength   = 10000
	embedMaxAttempts = 3
	embedBaseBackoff = 200 * time.Millisecond
)

// AnalyzedQuery is the analyzer's output: the query embedding plus a
// normalized token list used only for lexical pattern matching.
type AnalyzedQuery struct {
	Text      string
	Embedding []float32
	Tokens    []string
}

type QueryAnalyzer struct {
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewQueryAnalyzer(embedder domain.EmbeddingClient, logger *zap.Logger) *QueryAnalyzer {
	return &QueryAnalyzer{embedder: embedder, logger: logger}
}

// Analyze validates the raw query, embeds it, and tokenizes it. Validation
// errors are returned synchronously and are never retried.
func (a *QueryAnalyzer) Analyze(ctx context.Context, query string) (*AnalyzedQuery, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, domain.ErrQueryEmpty
	}
	if len(query) > maxQueryLength {
		return nil, domain.ErrQueryTooLong
	}

	embedding, err := a.EmbedWithRetry(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	return &AnalyzedQuery{
		Text:      trimmed,
		Embedding: embedding,
		Tokens:    tokenize(trimmed),
	}, nil
}

// EmbedWithRetry calls the embedding adapter with bounded exponential backoff.
// Exhausting all attempts is fatal for the request.
func (a *QueryAnalyzer) EmbedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	backoff := embedBaseBackoff

	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		embedding, err := a.embedder.Embed(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("embedding attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < embedMaxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, lastErr)
}

// tokenize lowercases the query and splits it into word tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
