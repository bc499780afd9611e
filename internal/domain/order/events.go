package order

import (
	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeOrder         = "Order"
	AggregateTypeTransferProof = "TransferProof"
)

// Event type constants
const (
	EventTypeOrderCreated         = "OrderCreated"
	EventTypeOrderConfirmed       = "OrderConfirmed"
	EventTypeOrderCancelled       = "OrderCancelled"
	EventTypeOrderExpired         = "OrderExpired"
	EventTypeOrderDeposited       = "OrderDeposited"
	EventTypeOrderPaid            = "OrderPaid"
	EventTypeOrderPaymentFailed   = "OrderPaymentFailed"
	EventTypeOrderShipped         = "OrderShipped"
	EventTypeOrderRefundRequested = "OrderRefundRequested"
	EventTypeOrderRefunded        = "OrderRefunded"
	EventTypeOrderChangeRequested = "OrderChangeRequested"
	EventTypeProofSubmitted       = "TransferProofSubmitted"
	EventTypeProofReviewed        = "TransferProofReviewed"
)

// ItemInfo carries an item snapshot inside events
type ItemInfo struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

func itemInfos(o *Order) []ItemInfo {
	infos := make([]ItemInfo, len(o.Items))
	for i, item := range o.Items {
		infos[i] = ItemInfo{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return infos
}

// CreatedEvent is raised when a new order is created
type CreatedEvent struct {
	shared.BaseDomainEvent
	OrderCode   string `json:"order_code"`
	OrderType   Type   `json:"order_type"`
	TotalAmount int64  `json:"total_amount"`
}

// NewCreatedEvent creates a new CreatedEvent
func NewCreatedEvent(o *Order) *CreatedEvent {
	return &CreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		OrderType:       o.Type,
		TotalAmount:     o.TotalAmount,
	}
}

// EventType returns the event type name
func (e *CreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// ConfirmedEvent is raised when an order is confirmed for fulfillment
type ConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderCode string     `json:"order_code"`
	Items     []ItemInfo `json:"items"`
}

// NewConfirmedEvent creates a new ConfirmedEvent
func NewConfirmedEvent(o *Order) *ConfirmedEvent {
	return &ConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		Items:           itemInfos(o),
	}
}

// EventType returns the event type name
func (e *ConfirmedEvent) EventType() string {
	return EventTypeOrderConfirmed
}

// CancelledEvent is raised when an order is cancelled.
// Stock held by the order must be restored by the listener exactly once.
type CancelledEvent struct {
	shared.BaseDomainEvent
	OrderCode    string     `json:"order_code"`
	CancelReason string     `json:"cancel_reason"`
	Items        []ItemInfo `json:"items"`
}

// NewCancelledEvent creates a new CancelledEvent
func NewCancelledEvent(o *Order) *CancelledEvent {
	return &CancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		CancelReason:    o.CancelReason,
		Items:           itemInfos(o),
	}
}

// EventType returns the event type name
func (e *CancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}

// ExpiredEvent is raised when a deposit reservation passes its deadline
type ExpiredEvent struct {
	shared.BaseDomainEvent
	OrderCode string     `json:"order_code"`
	Items     []ItemInfo `json:"items"`
}

// NewExpiredEvent creates a new ExpiredEvent
func NewExpiredEvent(o *Order) *ExpiredEvent {
	return &ExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderExpired, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		Items:           itemInfos(o),
	}
}

// EventType returns the event type name
func (e *ExpiredEvent) EventType() string {
	return EventTypeOrderExpired
}

// DepositedEvent is raised when the deposit is captured
type DepositedEvent struct {
	shared.BaseDomainEvent
	OrderCode       string `json:"order_code"`
	DepositAmount   int64  `json:"deposit_amount"`
	RemainingAmount int64  `json:"remaining_amount"`
}

// NewDepositedEvent creates a new DepositedEvent
func NewDepositedEvent(o *Order) *DepositedEvent {
	return &DepositedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeposited, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		DepositAmount:   o.DepositAmount,
		RemainingAmount: o.RemainingAmount,
	}
}

// EventType returns the event type name
func (e *DepositedEvent) EventType() string {
	return EventTypeOrderDeposited
}

// PaidEvent is raised when the full amount is captured
type PaidEvent struct {
	shared.BaseDomainEvent
	OrderCode   string `json:"order_code"`
	TotalAmount int64  `json:"total_amount"`
}

// NewPaidEvent creates a new PaidEvent
func NewPaidEvent(o *Order) *PaidEvent {
	return &PaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		TotalAmount:     o.TotalAmount,
	}
}

// EventType returns the event type name
func (e *PaidEvent) EventType() string {
	return EventTypeOrderPaid
}

// PaymentFailedEvent is raised when the gateway reports a failed capture
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	OrderCode string `json:"order_code"`
	Reason    string `json:"reason"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(o *Order, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaymentFailed, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *PaymentFailedEvent) EventType() string {
	return EventTypeOrderPaymentFailed
}

// ShippedEvent is raised when an order is shipped
type ShippedEvent struct {
	shared.BaseDomainEvent
	OrderCode string `json:"order_code"`
}

// NewShippedEvent creates a new ShippedEvent
func NewShippedEvent(o *Order) *ShippedEvent {
	return &ShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
	}
}

// EventType returns the event type name
func (e *ShippedEvent) EventType() string {
	return EventTypeOrderShipped
}

// RefundRequestedEvent is raised when an admin initiates a refund
type RefundRequestedEvent struct {
	shared.BaseDomainEvent
	OrderCode string `json:"order_code"`
	Amount    int64  `json:"amount"`
}

// NewRefundRequestedEvent creates a new RefundRequestedEvent
func NewRefundRequestedEvent(o *Order, amount int64) *RefundRequestedEvent {
	return &RefundRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRefundRequested, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		Amount:          amount,
	}
}

// EventType returns the event type name
func (e *RefundRequestedEvent) EventType() string {
	return EventTypeOrderRefundRequested
}

// RefundedEvent is raised when the gateway confirms a refund
type RefundedEvent struct {
	shared.BaseDomainEvent
	OrderCode      string `json:"order_code"`
	Amount         int64  `json:"amount"`
	RefundedAmount int64  `json:"refunded_amount"`
}

// NewRefundedEvent creates a new RefundedEvent
func NewRefundedEvent(o *Order, amount int64) *RefundedEvent {
	return &RefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRefunded, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		Amount:          amount,
		RefundedAmount:  o.RefundedAmount,
	}
}

// EventType returns the event type name
func (e *RefundedEvent) EventType() string {
	return EventTypeOrderRefunded
}

// ChangeRequestedEvent is raised on a purely advisory customer change request
type ChangeRequestedEvent struct {
	shared.BaseDomainEvent
	OrderCode string `json:"order_code"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// NewChangeRequestedEvent creates a new ChangeRequestedEvent
func NewChangeRequestedEvent(o *Order, category, message string) *ChangeRequestedEvent {
	return &ChangeRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderChangeRequested, AggregateTypeOrder, o.ID),
		OrderCode:       o.Code,
		Category:        category,
		Message:         message,
	}
}

// EventType returns the event type name
func (e *ChangeRequestedEvent) EventType() string {
	return EventTypeOrderChangeRequested
}

// ProofSubmittedEvent is raised when a customer uploads a transfer proof
type ProofSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	ImageCount int       `json:"image_count"`
}

// NewProofSubmittedEvent creates a new ProofSubmittedEvent
func NewProofSubmittedEvent(p *TransferProof) *ProofSubmittedEvent {
	return &ProofSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProofSubmitted, AggregateTypeTransferProof, p.ID),
		OrderID:         p.OrderID,
		ImageCount:      len(p.Images),
	}
}

// EventType returns the event type name
func (e *ProofSubmittedEvent) EventType() string {
	return EventTypeProofSubmitted
}

// ProofReviewedEvent is raised when an admin approves or rejects a proof
type ProofReviewedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID `json:"order_id"`
	Approved bool      `json:"approved"`
}

// NewProofReviewedEvent creates a new ProofReviewedEvent
func NewProofReviewedEvent(p *TransferProof, approved bool) *ProofReviewedEvent {
	return &ProofReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProofReviewed, AggregateTypeTransferProof, p.ID),
		OrderID:         p.OrderID,
		Approved:        approved,
	}
}

// EventType returns the event type name
func (e *ProofReviewedEvent) EventType() string {
	return EventTypeProofReviewed
}
