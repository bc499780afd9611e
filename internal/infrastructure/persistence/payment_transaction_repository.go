package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
)

// GormPaymentTransactionRepository implements order.PaymentTransactionRepository using GORM
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// FindByEventID finds a recorded gateway event by its gateway-assigned ID
func (r *GormPaymentTransactionRepository) FindByEventID(ctx context.Context, gatewayEventID string) (*order.PaymentTransaction, error) {
	var tx order.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("gateway_event_id = ?", gatewayEventID).
		First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindByOrder returns all gateway events recorded for an order, oldest first
func (r *GormPaymentTransactionRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.PaymentTransaction, error) {
	var txs []order.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("processed_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// Record inserts a gateway event. The unique index on gateway_event_id is
// the durable idempotency guard: a replayed event fails with
// shared.ErrAlreadyExists regardless of which instance saw it first.
func (r *GormPaymentTransactionRepository) Record(ctx context.Context, tx *order.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure.
// Covers GORM's translated error plus the raw Postgres and SQLite messages.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Ensure GormPaymentTransactionRepository implements order.PaymentTransactionRepository
var _ order.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)
