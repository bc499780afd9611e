package order

// Status represents the fulfillment status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusDeposited  Status = "deposited"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusExpired    Status = "expired"
	StatusRefunded   Status = "refunded"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeposited, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further fulfillment transition is allowed
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusDeposited ||
			target == StatusProcessing || target == StatusCancelled || target == StatusExpired
	case StatusConfirmed:
		return target == StatusDeposited || target == StatusProcessing ||
			target == StatusShipped || target == StatusCancelled
	case StatusDeposited:
		return target == StatusProcessing || target == StatusShipped ||
			target == StatusCancelled || target == StatusRefunded
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled || target == StatusRefunded
	case StatusShipped:
		return target == StatusDelivered || target == StatusRefunded
	case StatusDelivered:
		return target == StatusRefunded
	case StatusCancelled, StatusExpired, StatusRefunded:
		return false // Terminal states
	}
	return false
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusDepositPending    PaymentStatus = "deposit_pending"
	PaymentStatusDeposited         PaymentStatus = "deposited"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefundPending     PaymentStatus = "refund_pending"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusDepositPending, PaymentStatusDeposited,
		PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefundPending,
		PaymentStatusPartiallyRefunded, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the payment status can transition to the target status
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusDepositPending || target == PaymentStatusPaid ||
			target == PaymentStatusFailed
	case PaymentStatusDepositPending:
		return target == PaymentStatusDeposited || target == PaymentStatusFailed
	case PaymentStatusDeposited:
		return target == PaymentStatusPaid || target == PaymentStatusRefundPending
	case PaymentStatusPaid:
		return target == PaymentStatusRefundPending
	case PaymentStatusFailed:
		return target == PaymentStatusPending || target == PaymentStatusPaid
	case PaymentStatusRefundPending:
		// Refund outcomes arrive via webhook; a failed gateway refund
		// falls back to the refundable state it came from.
		return target == PaymentStatusRefunded || target == PaymentStatusPartiallyRefunded ||
			target == PaymentStatusPaid || target == PaymentStatusDeposited
	case PaymentStatusPartiallyRefunded:
		return target == PaymentStatusRefundPending || target == PaymentStatusRefunded
	case PaymentStatusRefunded:
		return false // Terminal state
	}
	return false
}

// IsRefundable reports whether a refund may be requested in this state
func (s PaymentStatus) IsRefundable() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusDeposited, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// Type distinguishes fully-paid orders from deposit reservations
type Type string

const (
	TypeStandard           Type = "standard"
	TypeDepositReservation Type = "deposit_reservation"
)

// IsValid checks if the type is a valid order Type
func (t Type) IsValid() bool {
	return t == TypeStandard || t == TypeDepositReservation
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// PaymentMethod is how the customer chose to pay
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCOD          PaymentMethod = "cod"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCOD:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}
