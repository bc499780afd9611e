package order

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistory is one append-only row in an order's audit trail. Rows are
// never updated or deleted; the order's current status must always equal the
// ToStatus of its most recent row.
type StatusHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	FromStatus *Status
	ToStatus   Status `gorm:"not null"`
	Note       string
	// ChangedBy is nil for customer- and system-initiated changes,
	// the admin's user ID otherwise.
	ChangedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

// NewStatusHistory creates a history row. fromStatus must be the order's
// status immediately prior to the write; nil only for the creation row.
func NewStatusHistory(orderID uuid.UUID, fromStatus *Status, toStatus Status, note string, changedBy *uuid.UUID) *StatusHistory {
	return &StatusHistory{
		ID:         uuid.New(),
		OrderID:    orderID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Note:       note,
		ChangedBy:  changedBy,
		CreatedAt:  time.Now(),
	}
}

// TableName keeps the table name explicit for the append-only trail
func (StatusHistory) TableName() string {
	return "order_status_histories"
}
