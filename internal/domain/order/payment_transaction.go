package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// PaymentTransaction is one gateway event applied to an order, keyed by the
// gateway's own event identifier. The unique key makes webhook processing
// idempotent in the durable store, independent of the fast-path cache.
type PaymentTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index"`
	GatewayEventID  string    `gorm:"uniqueIndex;not null"`
	EventType       string    `gorm:"not null"`
	Amount          int64     `gorm:"not null"`
	PaymentIntentID string
	RawPayload      []byte `gorm:"type:jsonb"`
	ProcessedAt     time.Time
	CreatedAt       time.Time
}

// NewPaymentTransaction records a gateway event against an order
func NewPaymentTransaction(orderID uuid.UUID, gatewayEventID, eventType string, amount int64, paymentIntentID string, rawPayload []byte) (*PaymentTransaction, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if gatewayEventID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Gateway event ID cannot be empty")
	}
	if eventType == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Event type cannot be empty")
	}

	now := time.Now()
	return &PaymentTransaction{
		ID:              uuid.New(),
		OrderID:         orderID,
		GatewayEventID:  gatewayEventID,
		EventType:       eventType,
		Amount:          amount,
		PaymentIntentID: paymentIntentID,
		RawPayload:      rawPayload,
		ProcessedAt:     now,
		CreatedAt:       now,
	}, nil
}
