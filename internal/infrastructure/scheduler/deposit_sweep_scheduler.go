package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	orderapp "github.com/valveaudio/backend/internal/application/order"
)

// DepositSweeper runs one expiry pass over overdue deposit reservations
type DepositSweeper interface {
	Sweep(ctx context.Context, now time.Time) (orderapp.SweepStats, error)
}

// DepositSweepSchedulerConfig holds configuration for the sweep scheduler
type DepositSweepSchedulerConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
	// RunTimeout bounds a single sweep pass
	RunTimeout time.Duration
}

// DefaultDepositSweepSchedulerConfig returns default sweep scheduler configuration
func DefaultDepositSweepSchedulerConfig() DepositSweepSchedulerConfig {
	return DepositSweepSchedulerConfig{
		Interval:   5 * time.Minute,
		RunTimeout: 2 * time.Minute,
	}
}

// DepositSweepScheduler periodically expires deposit reservations whose
// payment deadline has passed. The sweep itself is idempotent, so an extra
// run (or a manual trigger racing the timer) is harmless.
type DepositSweepScheduler struct {
	config  DepositSweepSchedulerConfig
	sweeper DepositSweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewDepositSweepScheduler creates a new sweep scheduler
func NewDepositSweepScheduler(
	config DepositSweepSchedulerConfig,
	sweeper DepositSweeper,
	logger *zap.Logger,
) *DepositSweepScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultDepositSweepSchedulerConfig().Interval
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultDepositSweepSchedulerConfig().RunTimeout
	}
	return &DepositSweepScheduler{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start starts the periodic sweep
func (s *DepositSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Deposit sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish
func (s *DepositSweepScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Deposit sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow triggers a sweep immediately, outside the timer
func (s *DepositSweepScheduler) RunNow(ctx context.Context) (orderapp.SweepStats, error) {
	return s.runOnce(ctx)
}

// runLoop runs the sweep on the configured interval
func (s *DepositSweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runOnce(ctx); err != nil {
				s.logger.Error("Deposit sweep failed", zap.Error(err))
			}
		}
	}
}

// runOnce executes a single bounded sweep pass
func (s *DepositSweepScheduler) runOnce(ctx context.Context) (orderapp.SweepStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	stats, err := s.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		return stats, err
	}

	if stats.ExpiredCount > 0 || stats.FailedCount > 0 {
		s.logger.Info("Deposit sweep completed",
			zap.Int("expired_count", stats.ExpiredCount),
			zap.Int("failed_count", stats.FailedCount),
		)
	}
	return stats, nil
}
