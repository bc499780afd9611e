package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/catalog"
	"github.com/valveaudio/backend/internal/domain/order"
)

// SweepStats summarizes one expiry sweep run
type SweepStats struct {
	// ExpiredCount is how many reservations were expired by this run
	ExpiredCount int `json:"expired_count"`
	// FailedCount is how many candidates hit an error and were skipped
	FailedCount int `json:"failed_count"`
	// ProcessedAt is when the sweep ran
	ProcessedAt time.Time `json:"processed_at"`
}

// ExpiryService expires deposit reservations whose due date has passed.
// Each candidate is handled independently: one failure never aborts the
// sweep, and the guarded status write keeps the sweep safe to run
// concurrently with customer cancels or a second sweep instance.
type ExpiryService struct {
	orders   order.Repository
	products catalog.ProductRepository
	mailer   Mailer
	logger   *zap.Logger
}

// NewExpiryService creates an expiry service
func NewExpiryService(orders order.Repository, products catalog.ProductRepository, mailer Mailer, logger *zap.Logger) *ExpiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryService{
		orders:   orders,
		products: products,
		mailer:   mailer,
		logger:   logger,
	}
}

// Sweep expires every overdue reservation and returns run statistics
func (s *ExpiryService) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	stats := SweepStats{ProcessedAt: now}

	overdue, err := s.orders.FindDepositOverdue(ctx, now)
	if err != nil {
		return stats, fmt.Errorf("failed to find overdue reservations: %w", err)
	}

	if len(overdue) == 0 {
		return stats, nil
	}

	s.logger.Info("Expiring overdue deposit reservations",
		zap.Int("candidates", len(overdue)))

	for i := range overdue {
		o := &overdue[i]

		from := o.Status
		hist := order.NewStatusHistory(o.ID, &from, order.StatusExpired,
			"Deposit deadline passed, reservation expired by system", nil)
		won, err := s.orders.TransitionStatus(ctx, o.ID, from, order.StatusExpired, nil, hist)
		if err != nil {
			stats.FailedCount++
			s.logger.Error("Failed to expire reservation",
				zap.String("code", o.Code),
				zap.Error(err))
			continue
		}
		if !won {
			// Another writer moved the order first; nothing to undo here
			s.logger.Debug("Reservation already transitioned, skipping",
				zap.String("code", o.Code))
			continue
		}

		restoreStock(ctx, s.products, o, s.logger)
		stats.ExpiredCount++

		if s.mailer != nil && o.Contact.Email != "" {
			body := fmt.Sprintf("Your reservation %s expired because the deposit was not received by %s.",
				o.Code, o.DepositDueAt.Format("2006-01-02 15:04"))
			if err := s.mailer.Send(ctx, o.Contact.Email, "Your reservation "+o.Code+" has expired", body); err != nil {
				s.logger.Warn("Failed to send expiry mail",
					zap.String("code", o.Code),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("Deposit expiry sweep finished",
		zap.Int("expired_count", stats.ExpiredCount),
		zap.Int("failed_count", stats.FailedCount))

	return stats, nil
}
