package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

func newTestDetector(values *mockValueStore, conversations *mockConversationStore, embedder *mockEmbedder) *CandorDetector {
	return NewCandorDetector(values, conversations, embedder, DefaultCandorConfig(), zap.NewNop())
}

func TestDetect_PreferenceOff(t *testing.T) {
	values := &mockValueStore{enabled: false}
	d := newTestDetector(values, newMockConversationStore(), newMockEmbedder())

	decision, err := d.Detect(context.Background(), uuid.New(), uuid.New(), testQuery())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Activate {
		t.Fatal("expected inactive decision with preference off")
	}
	if len(decision.Signals) != 0 {
		t.Fatalf("expected no signals computed, got %v", decision.Signals)
	}
	if values.valueCalls != 0 {
		t.Fatal("expected no value lookups with preference off")
	}
}

func TestDetect_PreferenceLookupFailure(t *testing.T) {
	values := &mockValueStore{enabledErr: errors.New("store down")}
	d := newTestDetector(values, newMockConversationStore(), newMockEmbedder())

	decision, err := d.Detect(context.Background(), uuid.New(), uuid.New(), testQuery())
	if err != nil {
		t.Fatalf("expected degraded decision, got error %v", err)
	}
	if decision.Activate {
		t.Fatal("expected inactive decision when preference is unavailable")
	}
}

func TestDetect_RepetitionSignal(t *testing.T) {
	conversationID := uuid.New()
	conversations := newMockConversationStore()
	for i := 0; i < 2; i++ {
		conversations.turns[conversationID] = append(conversations.turns[conversationID], domain.ConversationTurn{
			ConversationID: conversationID,
			Role:           domain.TurnRoleUser,
			Text:           "should I change careers",
			Embedding:      []float32{1, 0, 0},
		})
	}

	values := &mockValueStore{enabled: true}
	d := newTestDetector(values, conversations, newMockEmbedder())

	q := &AnalyzedQuery{Text: "pondering things", Embedding: []float32{1, 0, 0}, Tokens: []string{"pondering", "things"}}
	decision, err := d.Detect(context.Background(), uuid.New(), conversationID, q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var repetition float64
	for _, sig := range decision.Signals {
		if sig.Type == domain.SignalRepetition {
			repetition = sig.Confidence
		}
	}
	// Identical embeddings: 0.7*max + 0.3*mean with all similarities 1.0.
	if math.Abs(repetition-1.0) > 1e-6 {
		t.Fatalf("expected repetition confidence 1.0, got %g", repetition)
	}
	if decision.Activate {
		t.Fatal("single qualifying signal must not activate candor")
	}
}

func TestAggregate_TwoQualifyingAndHighMean(t *testing.T) {
	d := newTestDetector(&mockValueStore{}, newMockConversationStore(), newMockEmbedder())

	decision := d.aggregate([]domain.CandorSignal{
		{Type: domain.SignalRepetition, Confidence: 0.8},
		{Type: domain.SignalAvoidance, Confidence: 0.7},
		{Type: domain.SignalValidationSeeking, Confidence: 0.6},
		{Type: domain.SignalValueMisalignment, Confidence: 0.4},
	})
	if !decision.Activate {
		t.Fatalf("expected activation: %+v", decision)
	}
	if math.Abs(decision.Confidence-0.625) > 1e-9 {
		t.Fatalf("expected mean confidence 0.625, got %g", decision.Confidence)
	}
}

func TestAggregate_TwoQualifyingButLowMean(t *testing.T) {
	d := newTestDetector(&mockValueStore{}, newMockConversationStore(), newMockEmbedder())

	decision := d.aggregate([]domain.CandorSignal{
		{Type: domain.SignalRepetition, Confidence: 0.8},
		{Type: domain.SignalAvoidance, Confidence: 0.7},
		{Type: domain.SignalValidationSeeking, Confidence: 0.3},
		{Type: domain.SignalValueMisalignment, Confidence: 0.3},
	})
	if decision.Activate {
		t.Fatalf("expected no activation with mean %g", decision.Confidence)
	}
}

func TestAggregate_HighMeanButOneQualifying(t *testing.T) {
	d := newTestDetector(&mockValueStore{}, newMockConversationStore(), newMockEmbedder())

	decision := d.aggregate([]domain.CandorSignal{
		{Type: domain.SignalRepetition, Confidence: 0.95},
		{Type: domain.SignalAvoidance, Confidence: 0.6},
		{Type: domain.SignalValidationSeeking, Confidence: 0.6},
		{Type: domain.SignalValueMisalignment, Confidence: 0.45},
	})
	if decision.Activate {
		t.Fatal("expected no activation with a single qualifying signal")
	}
}

func TestLexicalSignal(t *testing.T) {
	tokens := []string{"maybe", "i", "guess", "it's", "fine"}
	got := lexicalSignal(tokens, avoidancePatterns, 0.2)
	// "maybe" and "i guess" both match.
	if math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("expected 0.4, got %g", got)
	}
}

func TestLexicalSignal_Caps(t *testing.T) {
	tokens := []string{"maybe", "maybe", "maybe", "maybe", "maybe", "maybe"}
	if got := lexicalSignal(tokens, avoidancePatterns, 0.2); got != 1.0 {
		t.Fatalf("expected cap at 1.0, got %g", got)
	}
}

func TestMisalignment_NoPrimaryValues(t *testing.T) {
	d := newTestDetector(&mockValueStore{}, newMockConversationStore(), newMockEmbedder())

	got := d.misalignmentSignal(context.Background(), testQuery(), []domain.CoreValue{
		{Category: domain.ValueSecondary, Embedding: []float32{1, 0, 0}},
	})
	if got != 0 {
		t.Fatalf("expected zero without primary values, got %g", got)
	}
}

func TestMisalignment_AgainstPrimaryValues(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.vectors["I want to quit"] = []float32{0, 1, 0}
	d := newTestDetector(&mockValueStore{}, newMockConversationStore(), embedder)

	q := &AnalyzedQuery{Text: "I want to quit", Tokens: []string{"i", "want", "to", "quit"}}
	got := d.misalignmentSignal(context.Background(), q, []domain.CoreValue{
		{Category: domain.ValuePrimary, Embedding: []float32{1, 0, 0}},
	})
	// Orthogonal intent and value: similarity 0, misalignment 1.
	if math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("expected misalignment 1.0, got %g", got)
	}
}

func TestExtractIntentPhrase(t *testing.T) {
	got := extractIntentPhrase("I feel stuck lately, I want to quit my job and travel.")
	if got != "I want to quit my job and travel" {
		t.Fatalf("unexpected intent phrase: %q", got)
	}
}

func TestExtractIntentPhrase_Fallback(t *testing.T) {
	text := "everything is heavy these days"
	if got := extractIntentPhrase(text); got != text {
		t.Fatalf("expected whole query fallback, got %q", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected 1.0 for identical vectors, got %g", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %g", got)
	}
	if got := cosineSimilarity(nil, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for empty vector, got %g", got)
	}
}
