package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/repository"
	"github.com/rs/zerolog"
)

// retentionService is the concrete implementation of RetentionService
type retentionService struct {
	repo     repository.VisitorRepository
	metrics  *metrics.Metrics
	cfg      config.VisitorsConfig
	now      func() time.Time
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
	interval time.Duration
}

func newRetentionService(deps Dependencies, cfg config.VisitorsConfig, log zerolog.Logger) *retentionService {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &retentionService{
		repo:     deps.Repos.Visitor,
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      deps.Now,
		log:      log.With().Str("service", "retention").Logger(),
		interval: interval,
	}
}

// StartProcessor sweeps expired visitor rows until the context ends or
// StopProcessor is called. It blocks; run it in its own goroutine.
func (s *retentionService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.log.Info().Dur("retention", s.cfg.Retention).Dur("interval", s.interval).Msg("Retention sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Retention sweeper stopping")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// StopProcessor stops the sweeper and waits for an in-flight sweep to finish
func (s *retentionService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Retention sweeper stopped")
}

func (s *retentionService) sweep() {
	if _, err := s.SweepOnce(s.ctx); err != nil && s.ctx.Err() == nil {
		s.log.Error().Err(err).Msg("Retention sweep failed")
	}
}

// SweepOnce deletes visitor rows older than the retention window
func (s *retentionService) SweepOnce(ctx context.Context) (int64, error) {
	if s.cfg.Retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.cfg.Retention)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old visits: %w", err)
	}
	if removed > 0 {
		s.metrics.VisitorsPurged.Add(float64(removed))
		s.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Expired visitor rows removed")
	}
	return removed, nil
}
