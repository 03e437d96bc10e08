package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/domain"
	"github.com/scottkmcmillan/relate/internal/store"
)

// mockEmbedder returns a fixed vector per text, failing the first failures
// calls when set.
type mockEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failures int
	calls    int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0, 0},
	}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("embedding unavailable")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockKnowledgeStore struct {
	domains    []domain.DomainMatch
	content    []domain.ContentMatch
	names      map[uuid.UUID]string
	domainsErr error
	contentErr error
	namesErr   error
}

func newMockKnowledgeStore() *mockKnowledgeStore {
	return &mockKnowledgeStore{names: make(map[uuid.UUID]string)}
}

func (m *mockKnowledgeStore) SearchDomains(ctx context.Context, ownerID uuid.UUID, embedding []float32, k int) ([]domain.DomainMatch, error) {
	if m.domainsErr != nil {
		return nil, m.domainsErr
	}
	return m.domains, nil
}

func (m *mockKnowledgeStore) SearchContent(ctx context.Context, ownerID uuid.UUID, embedding []float32, k int) ([]domain.ContentMatch, error) {
	if m.contentErr != nil {
		return nil, m.contentErr
	}
	return m.content, nil
}

func (m *mockKnowledgeStore) DomainNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if m.namesErr != nil {
		return nil, m.namesErr
	}
	return m.names, nil
}

type mockReferenceLookup struct {
	refs     []domain.ExternalReference
	err      error
	failures int
}

func (m *mockReferenceLookup) Lookup(ctx context.Context, keywords []string) ([]domain.ExternalReference, error) {
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("reference cache unavailable")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.refs, nil
}

type mockGraphStore struct {
	links []domain.DomainLink
	err   error
}

func (m *mockGraphStore) Links(ctx context.Context, domainIDs []uuid.UUID) ([]domain.DomainLink, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.links, nil
}

type mockConversationStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]uuid.UUID
	turns         map[uuid.UUID][]domain.ConversationTurn
	appendErr     error
	turnsErr      error
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{
		conversations: make(map[uuid.UUID]uuid.UUID),
		turns:         make(map[uuid.UUID][]domain.ConversationTurn),
	}
}

func (m *mockConversationStore) Create(ctx context.Context, conversationID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversationID] = userID
	return nil
}

func (m *mockConversationStore) Exists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.conversations[conversationID]
	return ok && owner == userID, nil
}

func (m *mockConversationStore) AppendTurn(ctx context.Context, t *domain.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.turns[t.ConversationID] = append(m.turns[t.ConversationID], *t)
	return nil
}

func (m *mockConversationStore) RecentTurns(ctx context.Context, conversationID uuid.UUID, n int) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turnsErr != nil {
		return nil, m.turnsErr
	}
	turns := m.turns[conversationID]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *mockConversationStore) allTurns(conversationID uuid.UUID) []domain.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ConversationTurn, len(m.turns[conversationID]))
	copy(out, m.turns[conversationID])
	return out
}

type mockValueStore struct {
	enabled    bool
	enabledErr error
	values     []domain.CoreValue
	valuesErr  error
	valueCalls int
}

func (m *mockValueStore) CoreValues(ctx context.Context, userID uuid.UUID) ([]domain.CoreValue, error) {
	m.valueCalls++
	if m.valuesErr != nil {
		return nil, m.valuesErr
	}
	return m.values, nil
}

func (m *mockValueStore) CandorEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	if m.enabledErr != nil {
		return false, m.enabledErr
	}
	return m.enabled, nil
}

type mockProvenanceStore struct {
	mu        sync.Mutex
	chains    map[uuid.UUID]*domain.ProvenanceChain
	createErr error
}

func newMockProvenanceStore() *mockProvenanceStore {
	return &mockProvenanceStore{chains: make(map[uuid.UUID]*domain.ProvenanceChain)}
}

func (m *mockProvenanceStore) Create(ctx context.Context, chain *domain.ProvenanceChain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.chains[chain.ResponseID] = chain
	return nil
}

func (m *mockProvenanceStore) GetByResponseID(ctx context.Context, responseID uuid.UUID) (*domain.ProvenanceChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain, ok := m.chains[responseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return chain, nil
}

type mockFeedbackStore struct {
	feedback  map[uuid.UUID]*domain.ResponseFeedback
	createErr error
}

func newMockFeedbackStore() *mockFeedbackStore {
	return &mockFeedbackStore{feedback: make(map[uuid.UUID]*domain.ResponseFeedback)}
}

func (m *mockFeedbackStore) Create(ctx context.Context, f *domain.ResponseFeedback) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.feedback[f.ResponseID] = f
	return nil
}

func (m *mockFeedbackStore) GetByResponseID(ctx context.Context, responseID uuid.UUID) (*domain.ResponseFeedback, error) {
	f, ok := m.feedback[responseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f, nil
}

// mockGenerator streams fixed deltas; a non-empty failAfter cuts the stream
// with an error delta once that many deltas have been sent.
type mockGenerator struct {
	deltas    []string
	startErr  error
	failAfter int
	midErr    error
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, bundle domain.ContextBundle) (<-chan domain.GenerationDelta, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	out := make(chan domain.GenerationDelta)
	go func() {
		defer close(out)
		for i, text := range m.deltas {
			if m.midErr != nil && i == m.failAfter {
				out <- domain.GenerationDelta{Err: m.midErr}
				return
			}
			select {
			case out <- domain.GenerationDelta{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
