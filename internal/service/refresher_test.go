package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type mockMaintainer struct {
	mu      sync.Mutex
	expires int
	reloads int
}

func (m *mockMaintainer) ExpireStale(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires++
	return 1, nil
}

func (m *mockMaintainer) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	return nil
}

func (m *mockMaintainer) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expires, m.reloads
}

func TestRefresher_RunsOnStartAndStops(t *testing.T) {
	maintainer := &mockMaintainer{}
	s := NewRefresherService(maintainer, zap.NewNop())
	s.SetInterval(10 * time.Millisecond)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	expires, reloads := maintainer.counts()
	if expires < 1 || reloads < 1 {
		t.Fatalf("expected at least one refresh pass, got expires=%d reloads=%d", expires, reloads)
	}

	// No further passes after Stop.
	expiresAfter, _ := maintainer.counts()
	time.Sleep(30 * time.Millisecond)
	expiresLater, _ := maintainer.counts()
	if expiresLater != expiresAfter {
		t.Fatal("expected no refresh passes after Stop")
	}
}
