package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByCode finds an order by its human-readable code
func (r *GormOrderRepository) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("code = ?", code).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByStripeSession finds the order bound to a checkout session
func (r *GormOrderRepository) FindByStripeSession(ctx context.Context, sessionID string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("stripe_session_id = ?", sessionID).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByPaymentIntent finds the order bound to a payment intent
func (r *GormOrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAll finds orders with filtering and returns the unpaged total
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&order.Order{}),
		filter,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&order.Order{}).Preload("Items"),
		filter,
	)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindDepositOverdue returns deposit reservations still awaiting a deposit
// whose due date is before now. Terminal orders never match because only
// deposit_pending rows are selected.
func (r *GormOrderRepository) FindDepositOverdue(ctx context.Context, now time.Time) ([]order.Order, error) {
	var orders []order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("type = ? AND payment_status = ? AND deposit_due_at IS NOT NULL AND deposit_due_at < ?",
			order.TypeDepositReservation, order.PaymentStatusDepositPending, now).
		Order("deposit_due_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order together with its items and any staged
// history rows
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "History").Save(o).Error; err != nil {
			return err
		}

		for i := range o.Items {
			o.Items[i].OrderID = o.ID
			if err := tx.Save(&o.Items[i]).Error; err != nil {
				return err
			}
		}

		// History is append-only: insert rows that do not exist yet,
		// never update or delete existing ones.
		for i := range o.History {
			o.History[i].OrderID = o.ID
			if err := tx.Where("id = ?", o.History[i].ID).
				FirstOrCreate(&o.History[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currentVersion := o.Version
		o.Version++
		o.UpdatedAt = time.Now()

		result := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":                   o.Status,
				"payment_status":           o.PaymentStatus,
				"subtotal_amount":          o.SubtotalAmount,
				"shipping_fee":             o.ShippingFee,
				"tax_amount":               o.TaxAmount,
				"discount_amount":          o.DiscountAmount,
				"total_amount":             o.TotalAmount,
				"deposit_amount":           o.DepositAmount,
				"remaining_amount":         o.RemainingAmount,
				"deposit_due_at":           o.DepositDueAt,
				"deposit_received_at":      o.DepositReceivedAt,
				"refunded_amount":          o.RefundedAmount,
				"pending_refund_amount":    o.PendingRefundAmount,
				"stripe_session_id":        o.StripeSessionID,
				"stripe_payment_intent_id": o.StripePaymentIntentID,
				"cancel_reason":            o.CancelReason,
				"customer_name":            o.Contact.Name,
				"customer_email":           o.Contact.Email,
				"customer_phone":           o.Contact.Phone,
				"shipping_address":         o.ShippingAddress,
				"user_id":                  o.UserID,
				"confirmed_at":             o.ConfirmedAt,
				"shipped_at":               o.ShippedAt,
				"delivered_at":             o.DeliveredAt,
				"cancelled_at":             o.CancelledAt,
				"expired_at":               o.ExpiredAt,
				"version":                  o.Version,
				"updated_at":               o.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			o.Version = currentVersion
			return shared.ErrConcurrencyConflict
		}

		for i := range o.History {
			o.History[i].OrderID = o.ID
			if err := tx.Where("id = ?", o.History[i].ID).
				FirstOrCreate(&o.History[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// TransitionStatus performs a conditional status write. The update applies
// only when the stored status still equals from; the history row is inserted
// in the same transaction so the trail and the state never diverge. Returns
// false when another writer already moved the order.
func (r *GormOrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to order.Status, paymentStatus *order.PaymentStatus, history *order.StatusHistory) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Bumping version invalidates any optimistic-lock save staged from
		// a copy loaded before this transition.
		updates := map[string]interface{}{
			"status":     to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}
		if paymentStatus != nil {
			updates["payment_status"] = *paymentStatus
		}
		switch to {
		case order.StatusCancelled:
			now := time.Now()
			updates["cancelled_at"] = &now
		case order.StatusExpired:
			now := time.Now()
			updates["expired_at"] = &now
		}

		result := tx.Model(&order.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil // lost the race, nothing to record
		}

		won = true
		if history != nil {
			history.OrderID = id
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// AppendHistory inserts one history row. The order row itself is untouched,
// which keeps note-only writes from racing status transitions.
func (r *GormOrderRepository) AppendHistory(ctx context.Context, history *order.StatusHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// GenerateCode generates the next order code.
// Format: VA-YYYY-NNNNN (e.g., VA-2026-00042)
func (r *GormOrderRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("VA-%d-", year)

	var lastOrder order.Order
	err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		First(&lastOrder).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastOrder.Code != "" {
		parts := strings.Split(lastOrder.Code, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	code := fmt.Sprintf("%s%05d", prefix, nextNum)

	// Verify uniqueness; on collision keep incrementing
	for i := 0; i < 100; i++ {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&order.Order{}).
			Where("code = ?", code).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			break
		}
		nextNum++
		code = fmt.Sprintf("%s%05d", prefix, nextNum)
	}

	return code, nil
}

// applyFilter applies filter options to the query
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR customer_name ILIKE ? OR customer_email ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "payment_method":
			query = query.Where("payment_method = ?", value)
		case "user_id":
			query = query.Where("user_id = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
