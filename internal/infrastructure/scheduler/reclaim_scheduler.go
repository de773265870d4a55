package scheduler

import (
	"context"
	"sync"
	"time"

	appadoption "github.com/farmlink/backend/internal/application/adoption"
	"go.uber.org/zap"
)

// ReclaimScheduler periodically sweeps expired pending orders and returns
// their units to the available pool.
type ReclaimScheduler struct {
	service   *appadoption.ReclaimService
	logger    *zap.Logger
	config    ReclaimSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// ReclaimSchedulerConfig holds configuration for the reclaim scheduler
type ReclaimSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is how often the sweep runs
	Interval time.Duration

	// SweepTimeout is the maximum time for a single sweep
	SweepTimeout time.Duration
}

// DefaultReclaimSchedulerConfig returns default configuration
func DefaultReclaimSchedulerConfig() ReclaimSchedulerConfig {
	return ReclaimSchedulerConfig{
		Enabled:      true,
		Interval:     60 * time.Second,
		SweepTimeout: 5 * time.Minute,
	}
}

// NewReclaimScheduler creates a new reclaim scheduler
func NewReclaimScheduler(
	service *appadoption.ReclaimService,
	logger *zap.Logger,
	config ReclaimSchedulerConfig,
) *ReclaimScheduler {
	return &ReclaimScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the reclaim scheduler
func (s *ReclaimScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reclaim scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runSweepLoop(ctx)

	s.logger.Info("Reclaim scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReclaimScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reclaim scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reclaim scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce performs a single sweep immediately. Used by the admin trigger
// endpoint and by tests.
func (s *ReclaimScheduler) RunOnce(ctx context.Context) (int, error) {
	return s.service.ReclaimExpired(ctx, time.Now())
}

func (s *ReclaimScheduler) runSweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReclaimScheduler) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	reclaimed, err := s.service.ReclaimExpired(sweepCtx, time.Now())
	if err != nil {
		s.logger.Error("Reclaim sweep failed", zap.Error(err))
		return
	}

	if reclaimed > 0 {
		s.logger.Info("Reclaim sweep completed",
			zap.Int("reclaimed", reclaimed),
		)
	}
}
