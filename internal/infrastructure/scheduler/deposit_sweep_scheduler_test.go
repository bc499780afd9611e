package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderapp "github.com/valveaudio/backend/internal/application/order"
)

type stubSweeper struct {
	mu    sync.Mutex
	calls int
	stats orderapp.SweepStats
	err   error
}

func (s *stubSweeper) Sweep(ctx context.Context, now time.Time) (orderapp.SweepStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.stats, s.err
}

func (s *stubSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestDepositSweepScheduler_RunNow(t *testing.T) {
	t.Run("returns sweep stats", func(t *testing.T) {
		sweeper := &stubSweeper{stats: orderapp.SweepStats{ExpiredCount: 2}}
		s := NewDepositSweepScheduler(DepositSweepSchedulerConfig{}, sweeper, zap.NewNop())

		stats, err := s.RunNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.ExpiredCount)
		assert.Equal(t, 1, sweeper.callCount())
	})

	t.Run("propagates sweep errors", func(t *testing.T) {
		sweeper := &stubSweeper{err: errors.New("db unavailable")}
		s := NewDepositSweepScheduler(DepositSweepSchedulerConfig{}, sweeper, zap.NewNop())

		_, err := s.RunNow(context.Background())
		assert.Error(t, err)
	})
}

func TestDepositSweepScheduler_PeriodicRun(t *testing.T) {
	sweeper := &stubSweeper{}
	s := NewDepositSweepScheduler(DepositSweepSchedulerConfig{
		Interval:   10 * time.Millisecond,
		RunTimeout: time.Second,
	}, sweeper, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return sweeper.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
}

func TestDepositSweepScheduler_StartStop(t *testing.T) {
	t.Run("start is idempotent", func(t *testing.T) {
		s := NewDepositSweepScheduler(DepositSweepSchedulerConfig{Interval: time.Hour}, &stubSweeper{}, zap.NewNop())

		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		s := NewDepositSweepScheduler(DepositSweepSchedulerConfig{Interval: time.Hour}, &stubSweeper{}, zap.NewNop())
		assert.NoError(t, s.Stop(context.Background()))
	})

	t.Run("stop honors its context deadline", func(t *testing.T) {
		s := NewDepositSweepScheduler(DepositSweepSchedulerConfig{Interval: time.Hour}, &stubSweeper{}, zap.NewNop())
		require.NoError(t, s.Start(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, s.Stop(ctx))
	})
}
