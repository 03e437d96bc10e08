package service

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CandorConfig carries the signal thresholds and lexical weights. The
// defaults are heuristic constants, exposed as configuration rather than
// treated as validated model parameters.
type CandorConfig struct {
	RepetitionThreshold   float64
	AvoidanceThreshold    float64
	ValidationThreshold   float64
	MisalignmentThreshold float64
	AvoidanceWeight       float64
	ValidationWeight      float64
	Window                int
}

func DefaultCandorConfig() CandorConfig {
	return CandorConfig{
		RepetitionThreshold:   0.7,
		AvoidanceThreshold:    0.6,
		ValidationThreshold:   0.7,
		MisalignmentThreshold: 0.5,
		AvoidanceWeight:       0.2,
		ValidationWeight:      0.25,
		Window:                10,
	}
}

const aggregateThreshold = 0.6

const repetitionTurnLimit = 10

// Lexical pattern lists for the avoidance and validation-seeking signals.
// Multi-word patterns are matched against the joined token stream.
var (
	avoidancePatterns = []string{
		"maybe", "perhaps", "might", "possibly", "probably",
		"i guess", "sort of", "kind of", "not sure", "i don't know",
		"it depends", "we'll see",
		"they made me", "because of them", "not my fault",
		"forced me", "had no choice", "out of my hands",
	}

	validationPatterns = []string{
		"right?", "don't you think", "am i right", "is that ok",
		"is that okay", "is it bad that", "would it be wrong",
		"everyone does", "it's normal", "just", "only", "a little",
		"barely", "not a big deal", "no big deal",
	}

	actionVerbs = []string{
		"want", "going", "plan", "planning", "thinking", "decided",
		"will", "should", "quit", "leave", "start", "stop", "tell",
		"ask", "move", "buy", "sell", "take", "give", "change",
	}
)

// CandorDetector decides whether the response should adopt a candid stance,
// based on conversational patterns and the user's declared values. All four
// signal computations are pure; they run concurrently with each other.
type CandorDetector struct {
	values       domain.ValueStore
	conversation domain.ConversationStore
	embedder     domain.EmbeddingClient
	cfg          CandorConfig
	logger       *zap.Logger
}

func NewCandorDetector(values domain.ValueStore, conversation domain.ConversationStore, embedder domain.EmbeddingClient, cfg CandorConfig, logger *zap.Logger) *CandorDetector {
	return &CandorDetector{
		values:       values,
		conversation: conversation,
		embedder:     embedder,
		cfg:          cfg,
		logger:       logger,
	}
}

// Detect produces the CandorDecision for the current query. A user with the
// preference off short-circuits to an inactive decision with zero signals and
// no computation.
func (d *CandorDetector) Detect(ctx context.Context, userID, conversationID uuid.UUID, q *AnalyzedQuery) (domain.CandorDecision, error) {
	enabled, err := d.values.CandorEnabled(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return domain.CandorDecision{}, ctx.Err()
		}
		d.logger.Warn("candor preference unavailable, treating as off", zap.Error(err))
		return domain.CandorDecision{Activate: false}, nil
	}
	if !enabled {
		return domain.CandorDecision{Activate: false}, nil
	}

	turns, err := d.conversation.RecentTurns(ctx, conversationID, d.cfg.Window)
	if err != nil {
		if ctx.Err() != nil {
			return domain.CandorDecision{}, ctx.Err()
		}
		d.logger.Warn("conversation history unavailable for candor detection", zap.Error(err))
		turns = nil
	}

	values, err := d.values.CoreValues(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return domain.CandorDecision{}, ctx.Err()
		}
		d.logger.Warn("core values unavailable for candor detection", zap.Error(err))
		values = nil
	}

	var repetition, misalignment float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		repetition = d.repetitionSignal(gctx, turns, q.Embedding)
		return nil
	})
	g.Go(func() error {
		misalignment = d.misalignmentSignal(gctx, q, values)
		return nil
	})
	avoidance := lexicalSignal(q.Tokens, avoidancePatterns, d.cfg.AvoidanceWeight)
	validation := lexicalSignal(q.Tokens, validationPatterns, d.cfg.ValidationWeight)
	_ = g.Wait()

	signals := []domain.CandorSignal{
		{Type: domain.SignalRepetition, Confidence: repetition},
		{Type: domain.SignalAvoidance, Confidence: avoidance},
		{Type: domain.SignalValidationSeeking, Confidence: validation},
		{Type: domain.SignalValueMisalignment, Confidence: misalignment},
	}
	return d.aggregate(signals), nil
}

// aggregate applies the two-part activation rule, in order: at least two
// signals above their individual thresholds, then aggregate mean above 0.6.
func (d *CandorDetector) aggregate(signals []domain.CandorSignal) domain.CandorDecision {
	thresholds := map[domain.CandorSignalType]float64{
		domain.SignalRepetition:        d.cfg.RepetitionThreshold,
		domain.SignalAvoidance:         d.cfg.AvoidanceThreshold,
		domain.SignalValidationSeeking: d.cfg.ValidationThreshold,
		domain.SignalValueMisalignment: d.cfg.MisalignmentThreshold,
	}

	qualifying := 0
	var sum float64
	for _, sig := range signals {
		if sig.Confidence > thresholds[sig.Type] {
			qualifying++
		}
		sum += sig.Confidence
	}
	mean := sum / float64(len(signals))

	activate := qualifying >= 2 && mean > aggregateThreshold
	return domain.CandorDecision{
		Activate:   activate,
		Confidence: mean,
		Signals:    signals,
	}
}

// repetitionSignal compares the current query against the user's last turns:
// 0.7*max_similarity + 0.3*mean_similarity. An embedding failure for a past
// turn drops that turn; no comparable turns yields confidence 0.
func (d *CandorDetector) repetitionSignal(ctx context.Context, turns []domain.ConversationTurn, queryEmbedding []float32) float64 {
	var similarities []float64
	count := 0
	for i := len(turns) - 1; i >= 0 && count < repetitionTurnLimit; i-- {
		t := turns[i]
		if t.Role != domain.TurnRoleUser {
			continue
		}
		count++

		embedding := t.Embedding
		if len(embedding) == 0 {
			var err error
			embedding, err = d.embedder.Embed(ctx, t.Text)
			if err != nil {
				d.logger.Debug("skipping turn in repetition signal", zap.Error(err))
				continue
			}
		}
		similarities = append(similarities, cosineSimilarity(queryEmbedding, embedding))
	}
	if len(similarities) == 0 {
		return 0
	}

	max, sum := 0.0, 0.0
	for _, s := range similarities {
		if s > max {
			max = s
		}
		sum += s
	}
	return 0.7*max + 0.3*(sum/float64(len(similarities)))
}

// misalignmentSignal extracts the intent phrase from the query and scores it
// against the user's primary values: confidence = 1 - max_similarity. Without
// assessable primary values the signal is 0.
func (d *CandorDetector) misalignmentSignal(ctx context.Context, q *AnalyzedQuery, values []domain.CoreValue) float64 {
	var primary []domain.CoreValue
	for _, v := range values {
		if v.Category == domain.ValuePrimary && len(v.Embedding) > 0 {
			primary = append(primary, v)
		}
	}
	if len(primary) == 0 {
		return 0
	}

	intent := extractIntentPhrase(q.Text)
	embedding, err := d.embedder.Embed(ctx, intent)
	if err != nil {
		d.logger.Debug("intent embedding failed, misalignment signal degraded", zap.Error(err))
		return 0
	}

	max := 0.0
	for _, v := range primary {
		if s := cosineSimilarity(embedding, v.Embedding); s > max {
			max = s
		}
	}
	return 1 - max
}

// lexicalSignal counts pattern matches in the token stream:
// min(1.0, weight * match_count).
func lexicalSignal(tokens []string, patterns []string, weight float64) float64 {
	joined := strings.Join(tokens, " ")
	count := 0
	for _, p := range patterns {
		if strings.Contains(p, " ") {
			count += strings.Count(joined, p)
			continue
		}
		for _, tok := range tokens {
			if tok == strings.TrimSuffix(p, "?") {
				count++
			}
		}
	}
	return math.Min(1.0, weight*float64(count))
}

// extractIntentPhrase returns the longest clause containing an action verb,
// falling back to the whole query.
func extractIntentPhrase(text string) string {
	clauses := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '.' || r == ';' || r == '!' || r == '?'
	})

	best := ""
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if len(clause) <= len(best) {
			continue
		}
		lower := strings.ToLower(clause)
		for _, verb := range actionVerbs {
			if containsWord(lower, verb) {
				best = clause
				break
			}
		}
	}
	if best == "" {
		return text
	}
	return best
}

func containsWord(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		if strings.Trim(tok, "'\"") == word {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
