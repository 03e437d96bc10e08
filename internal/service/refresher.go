package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultRefresherInterval = 15 * time.Minute

// ReferenceMaintainer is the subset of the reference cache the refresher
// drives: expiry of stale rows and an in-memory snapshot reload.
type ReferenceMaintainer interface {
	ExpireStale(ctx context.Context) (int64, error)
	Reload(ctx context.Context) error
}

// RefresherService keeps the external-reference cache fresh on a periodic
// schedule. References past their TTL are deleted and the lookup snapshot is
// rebuilt.
type RefresherService struct {
	cache  ReferenceMaintainer
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewRefresherService(cache ReferenceMaintainer, logger *zap.Logger) *RefresherService {
	return &RefresherService{
		cache:    cache,
		logger:   logger,
		interval: defaultRefresherInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *RefresherService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the refresher in a background goroutine. The snapshot is loaded
// once immediately so lookups work before the first tick.
func (s *RefresherService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("reference refresher started", zap.Duration("interval", s.interval))

		s.runOnce()
		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopCh:
				s.logger.Info("reference refresher stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the refresher.
func (s *RefresherService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *RefresherService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.cache.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("failed to expire stale references", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("expired stale references", zap.Int64("count", deleted))
	}

	if err := s.cache.Reload(ctx); err != nil {
		s.logger.Error("failed to reload reference snapshot", zap.Error(err))
	}
}
