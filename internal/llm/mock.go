package llm

import (
	"context"

	"github.com/scottkmcmillan/relate/internal/domain"
)

// MockClient streams a fixed set of deltas, for local development and tests.
type MockClient struct {
	Deltas []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Deltas: []string{"This is ", "a mock ", "response."},
	}
}

func (m *MockClient) Generate(ctx context.Context, prompt string, bundle domain.ContextBundle) (<-chan domain.GenerationDelta, error) {
	deltas := make(chan domain.GenerationDelta)
	go func() {
		defer close(deltas)
		for _, text := range m.Deltas {
			select {
			case deltas <- domain.GenerationDelta{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return deltas, nil
}
