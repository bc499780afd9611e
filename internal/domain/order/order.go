package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// Item represents a line in an order. It is an immutable snapshot of the
// product at order-creation time and is never re-derived from the catalog.
type Item struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null"`
	ProductName string    `gorm:"not null"`
	ProductSlug string
	UnitPrice   int64 `gorm:"not null"`
	Quantity    int   `gorm:"not null"`
	Subtotal    int64 `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "order_items"
}

// NewItem creates an order line snapshot
func NewItem(orderID, productID uuid.UUID, name, slug string, unitPrice int64, quantity int) (*Item, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if unitPrice < 0 {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	return &Item{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: name,
		ProductSlug: slug,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		Subtotal:    unitPrice * int64(quantity),
		CreatedAt:   time.Now(),
	}, nil
}

// Contact holds the customer's guest-tracking identity. At least one of
// email or phone is required so the order stays reachable without an account.
type Contact struct {
	Name  string `gorm:"column:customer_name;not null"`
	Email string `gorm:"column:customer_email;index"`
	Phone string `gorm:"column:customer_phone;index"`
}

// Order is the aggregate root for a purchase. All monetary amounts are
// integer VND; the currency has no minor unit.
type Order struct {
	shared.BaseAggregateRoot
	Code          string        `gorm:"uniqueIndex;not null"`
	Type          Type          `gorm:"not null"`
	Status        Status        `gorm:"not null;index"`
	PaymentStatus PaymentStatus `gorm:"not null;index"`
	PaymentMethod PaymentMethod `gorm:"not null"`

	Contact         Contact `gorm:"embedded"`
	ShippingAddress string
	UserID          *uuid.UUID `gorm:"type:uuid;index"`

	SubtotalAmount int64 `gorm:"not null"`
	ShippingFee    int64 `gorm:"not null;default:0"`
	TaxAmount      int64 `gorm:"not null;default:0"`
	DiscountAmount int64 `gorm:"not null;default:0"`
	TotalAmount    int64 `gorm:"not null"`

	DepositAmount     int64      `gorm:"not null;default:0"`
	RemainingAmount   int64      `gorm:"not null;default:0"`
	DepositDueAt      *time.Time `gorm:"index"`
	DepositReceivedAt *time.Time

	RefundedAmount      int64 `gorm:"not null;default:0"`
	PendingRefundAmount int64 `gorm:"not null;default:0"`

	StripeSessionID       string `gorm:"index"`
	StripePaymentIntentID string `gorm:"index"`

	Items   []Item          `gorm:"foreignKey:OrderID"`
	History []StatusHistory `gorm:"foreignKey:OrderID"`

	CancelReason string
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	ExpiredAt    *time.Time
}

// NewOrder creates a pending order from checkout input. Items must already
// be priced; totals are derived here and never recomputed afterwards.
func NewOrder(code string, orderType Type, method PaymentMethod, contact Contact, shippingAddress string, shippingFee, taxAmount, discountAmount int64) (*Order, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_CODE", "Order code cannot be empty")
	}
	if !orderType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ORDER_TYPE", "Unknown order type")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if contact.Name == "" {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Customer name cannot be empty")
	}
	if contact.Email == "" && contact.Phone == "" {
		return nil, shared.NewDomainError("INVALID_CONTACT", "At least one of email or phone is required")
	}
	if shippingFee < 0 || taxAmount < 0 || discountAmount < 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amounts cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Type:              orderType,
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
		PaymentMethod:     method,
		Contact:           contact,
		ShippingAddress:   shippingAddress,
		ShippingFee:       shippingFee,
		TaxAmount:         taxAmount,
		DiscountAmount:    discountAmount,
		Items:             make([]Item, 0),
	}

	o.AddDomainEvent(NewCreatedEvent(o))
	o.appendHistory(nil, StatusPending, "Order created", nil)

	return o, nil
}

// AddItem snapshots a product line onto the order. Only allowed before the
// order leaves pending; totals are recomputed on every add.
func (o *Order) AddItem(productID uuid.UUID, name, slug string, unitPrice int64, quantity int) (*Item, error) {
	if o.Status != StatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a non-pending order")
	}

	item, err := NewItem(o.ID, productID, name, slug, unitPrice, quantity)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotals()
	o.Touch()

	return item, nil
}

// SetDeposit configures the deposit block for a reservation order.
// remaining = total − deposit must stay non-negative.
func (o *Order) SetDeposit(depositAmount int64, dueAt time.Time) error {
	if o.Type != TypeDepositReservation {
		return shared.NewDomainError("INVALID_STATE", "Only deposit reservations carry a deposit")
	}
	if depositAmount <= 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	if depositAmount > o.TotalAmount {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit cannot exceed order total")
	}

	o.DepositAmount = depositAmount
	o.RemainingAmount = o.TotalAmount - depositAmount
	o.DepositDueAt = &dueAt
	o.Touch()

	return nil
}

// AwaitDepositTransfer moves payment into deposit_pending for bank transfers.
// The due date must already be set.
func (o *Order) AwaitDepositTransfer() error {
	if o.PaymentMethod != PaymentMethodBankTransfer {
		return shared.NewDomainError("INVALID_STATE", "Deposit transfer applies to bank-transfer orders only")
	}
	if o.DepositDueAt == nil {
		return shared.NewDomainError("INVALID_STATE", "Deposit due date is not set")
	}
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusDepositPending) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot await deposit in %s payment status", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusDepositPending
	o.Touch()

	return nil
}

// Confirm confirms the order for fulfillment
func (o *Order) Confirm(actor *uuid.UUID) error {
	if !o.Status.CanTransitionTo(StatusConfirmed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm order in %s status", o.Status))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot confirm order without items")
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now

	o.appendHistory(&from, StatusConfirmed, "Order confirmed", actor)
	o.AddDomainEvent(NewConfirmedEvent(o))

	return nil
}

// CanBeCancelledByCustomer reports whether a guest cancel is still legal:
// before fulfillment starts, or while only a deposit is pending/held.
func (o *Order) CanBeCancelledByCustomer() bool {
	if o.Status == StatusPending || o.Status == StatusConfirmed {
		return true
	}
	return o.PaymentStatus == PaymentStatusDepositPending || o.PaymentStatus == PaymentStatusDeposited
}

// Cancel cancels the order. Reason is mandatory.
func (o *Order) Cancel(reason string, actor *uuid.UUID) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now

	o.appendHistory(&from, StatusCancelled, "Cancelled: "+reason, actor)
	o.AddDomainEvent(NewCancelledEvent(o))

	return nil
}

// Expire marks an overdue deposit reservation as expired. Only legal while
// the deposit is still pending.
func (o *Order) Expire(now time.Time) error {
	if o.Type != TypeDepositReservation || o.PaymentStatus != PaymentStatusDepositPending {
		return shared.NewDomainError("INVALID_STATE", "Only reservations awaiting a deposit can expire")
	}
	if o.DepositDueAt == nil || !o.DepositDueAt.Before(now) {
		return shared.NewDomainError("INVALID_STATE", "Deposit is not overdue")
	}
	if !o.Status.CanTransitionTo(StatusExpired) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot expire order in %s status", o.Status))
	}

	from := o.Status
	o.Status = StatusExpired
	o.ExpiredAt = &now
	o.UpdatedAt = now

	o.appendHistory(&from, StatusExpired, "Deposit deadline passed, reservation expired by system", nil)
	o.AddDomainEvent(NewExpiredEvent(o))

	return nil
}

// MarkDeposited records a captured deposit and advances the order
func (o *Order) MarkDeposited(receivedAt time.Time) error {
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusDeposited) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record deposit in %s payment status", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusDeposited
	o.DepositReceivedAt = &receivedAt
	o.UpdatedAt = receivedAt

	if o.Status.CanTransitionTo(StatusDeposited) {
		from := o.Status
		o.Status = StatusDeposited
		o.appendHistory(&from, StatusDeposited, "Deposit received", nil)
	}

	o.AddDomainEvent(NewDepositedEvent(o))

	return nil
}

// MarkPaid records full payment capture
func (o *Order) MarkPaid() error {
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusPaid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark paid in %s payment status", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusPaid
	o.RemainingAmount = 0
	o.Touch()

	if o.Status.CanTransitionTo(StatusProcessing) {
		from := o.Status
		o.Status = StatusProcessing
		o.appendHistory(&from, StatusProcessing, "Payment captured", nil)
	}

	o.AddDomainEvent(NewPaidEvent(o))

	return nil
}

// FailPayment records a failed capture reported by the gateway
func (o *Order) FailPayment(reason string) error {
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusFailed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s payment status", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusFailed
	o.Touch()
	o.AddDomainEvent(NewPaymentFailedEvent(o, reason))

	return nil
}

// Ship marks the order as shipped
func (o *Order) Ship(actor *uuid.UUID) error {
	if !o.Status.CanTransitionTo(StatusShipped) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot ship order in %s status", o.Status))
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusShipped
	o.ShippedAt = &now
	o.UpdatedAt = now

	o.appendHistory(&from, StatusShipped, "Order shipped", actor)
	o.AddDomainEvent(NewShippedEvent(o))

	return nil
}

// Deliver marks the order as delivered
func (o *Order) Deliver(actor *uuid.UUID) error {
	if !o.Status.CanTransitionTo(StatusDelivered) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deliver order in %s status", o.Status))
	}

	now := time.Now()
	from := o.Status
	o.Status = StatusDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now

	o.appendHistory(&from, StatusDelivered, "Order delivered", actor)

	return nil
}

// StartProcessing moves a confirmed or deposited order into fulfillment
func (o *Order) StartProcessing(actor *uuid.UUID) error {
	if !o.Status.CanTransitionTo(StatusProcessing) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing in %s status", o.Status))
	}

	from := o.Status
	o.Status = StatusProcessing
	o.Touch()
	o.appendHistory(&from, StatusProcessing, "Order moved to processing", actor)

	return nil
}

// CapturedBase returns the amount the gateway actually holds for this order:
// the deposit for reservations, the full total otherwise.
func (o *Order) CapturedBase() int64 {
	if o.Type == TypeDepositReservation && o.PaymentStatus != PaymentStatusPaid {
		return o.DepositAmount
	}
	return o.TotalAmount
}

// RefundableAmount returns what may still be refunded
func (o *Order) RefundableAmount() int64 {
	remaining := o.CapturedBase() - o.RefundedAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BeginRefund moves payment into refund_pending for the given amount.
// The amount must already be clamped to RefundableAmount by the caller.
func (o *Order) BeginRefund(amount int64) error {
	if !o.PaymentStatus.IsRefundable() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund order in %s payment status", o.PaymentStatus))
	}
	if amount <= 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	if amount > o.RefundableAmount() {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount exceeds refundable balance")
	}

	o.PaymentStatus = PaymentStatusRefundPending
	o.PendingRefundAmount = amount
	o.Touch()
	o.AddDomainEvent(NewRefundRequestedEvent(o, amount))

	return nil
}

// SettleRefund applies a gateway-confirmed refund to the accumulator and
// resolves the final payment status. Safe on amounts reported by webhook.
func (o *Order) SettleRefund(amount int64) error {
	if amount <= 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}

	o.RefundedAmount += amount
	if o.RefundedAmount > o.CapturedBase() {
		o.RefundedAmount = o.CapturedBase()
	}
	o.PendingRefundAmount = 0

	if o.RefundedAmount >= o.CapturedBase() {
		o.PaymentStatus = PaymentStatusRefunded
		if o.Status.CanTransitionTo(StatusRefunded) {
			from := o.Status
			o.Status = StatusRefunded
			o.appendHistory(&from, StatusRefunded, "Refund settled in full", nil)
		}
	} else {
		o.PaymentStatus = PaymentStatusPartiallyRefunded
	}

	o.Touch()
	o.AddDomainEvent(NewRefundedEvent(o, amount))

	return nil
}

// FailRefund returns a refund_pending order to its prior refundable state
func (o *Order) FailRefund() error {
	if o.PaymentStatus != PaymentStatusRefundPending {
		return shared.NewDomainError("INVALID_STATE", "No refund is pending")
	}

	o.PendingRefundAmount = 0
	switch {
	case o.RefundedAmount > 0:
		o.PaymentStatus = PaymentStatusPartiallyRefunded
	case o.Type == TypeDepositReservation && o.RemainingAmount > 0:
		o.PaymentStatus = PaymentStatusDeposited
	default:
		o.PaymentStatus = PaymentStatusPaid
	}
	o.Touch()

	return nil
}

// Claim binds the order to an authenticated user. An order can be claimed
// exactly once.
func (o *Order) Claim(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "User ID cannot be empty")
	}
	if o.UserID != nil {
		return shared.NewDomainError("INVALID_STATE", "Order is already linked to an account")
	}

	o.UserID = &userID
	o.Touch()

	return nil
}

// AttachStripeRefs records the gateway identifiers for later reconciliation
func (o *Order) AttachStripeRefs(sessionID, paymentIntentID string) {
	if sessionID != "" {
		o.StripeSessionID = sessionID
	}
	if paymentIntentID != "" {
		o.StripePaymentIntentID = paymentIntentID
	}
	o.Touch()
}

// appendHistory stages an append-only history row. fromStatus is nil only
// for the creation row.
func (o *Order) appendHistory(from *Status, to Status, note string, changedBy *uuid.UUID) {
	o.History = append(o.History, *NewStatusHistory(o.ID, from, to, note, changedBy))
}

// recalculateTotals recomputes the derived amounts from the item snapshots
func (o *Order) recalculateTotals() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.Subtotal
	}
	o.SubtotalAmount = subtotal
	o.TotalAmount = subtotal + o.ShippingFee + o.TaxAmount - o.DiscountAmount
	if o.TotalAmount < 0 {
		o.DiscountAmount = subtotal + o.ShippingFee + o.TaxAmount
		o.TotalAmount = 0
	}
	if o.Type == TypeDepositReservation && o.DepositAmount > 0 {
		o.RemainingAmount = o.TotalAmount - o.DepositAmount
	}
}

// IsTerminal returns true if the order is in a terminal state. Delivered
// counts as terminal for fulfillment even though a refund may still follow.
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal() || o.Status == StatusDelivered
}

// AcceptsTransferProof reports whether a deposit proof upload is legal now
func (o *Order) AcceptsTransferProof() bool {
	return o.Type == TypeDepositReservation &&
		o.PaymentMethod == PaymentMethodBankTransfer &&
		o.PaymentStatus == PaymentStatusDepositPending
}

// ItemCount returns the number of lines in the order
func (o *Order) ItemCount() int {
	return len(o.Items)
}
