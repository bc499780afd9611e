package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  Status
		isValid bool
	}{
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusDeposited, true},
		{StatusProcessing, true},
		{StatusShipped, true},
		{StatusDelivered, true},
		{StatusCancelled, true},
		{StatusExpired, true},
		{StatusRefunded, true},
		{Status("unknown"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		canTrans bool
	}{
		// From pending
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusDeposited, true},
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		// From confirmed
		{StatusConfirmed, StatusDeposited, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusExpired, false},
		{StatusConfirmed, StatusPending, false},
		// From deposited
		{StatusDeposited, StatusProcessing, true},
		{StatusDeposited, StatusShipped, true},
		{StatusDeposited, StatusCancelled, true},
		{StatusDeposited, StatusRefunded, true},
		{StatusDeposited, StatusExpired, false},
		// From processing
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusRefunded, true},
		{StatusProcessing, StatusExpired, false},
		// From shipped
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusRefunded, true},
		{StatusShipped, StatusCancelled, false},
		// From delivered
		{StatusDelivered, StatusRefunded, true},
		{StatusDelivered, StatusShipped, false},
		// Terminal states
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusExpired, StatusPending, false},
		{StatusExpired, StatusCancelled, false},
		{StatusRefunded, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.False(t, StatusDelivered.IsTerminal())
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     PaymentStatus
		to       PaymentStatus
		canTrans bool
	}{
		// From pending
		{PaymentStatusPending, PaymentStatusDepositPending, true},
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusDeposited, false},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		// From deposit_pending
		{PaymentStatusDepositPending, PaymentStatusDeposited, true},
		{PaymentStatusDepositPending, PaymentStatusFailed, true},
		{PaymentStatusDepositPending, PaymentStatusPaid, false},
		// From deposited
		{PaymentStatusDeposited, PaymentStatusPaid, true},
		{PaymentStatusDeposited, PaymentStatusRefundPending, true},
		{PaymentStatusDeposited, PaymentStatusRefunded, false},
		// From paid
		{PaymentStatusPaid, PaymentStatusRefundPending, true},
		{PaymentStatusPaid, PaymentStatusRefunded, false},
		{PaymentStatusPaid, PaymentStatusDeposited, false},
		// From failed
		{PaymentStatusFailed, PaymentStatusPending, true},
		{PaymentStatusFailed, PaymentStatusPaid, true},
		{PaymentStatusFailed, PaymentStatusRefundPending, false},
		// From refund_pending
		{PaymentStatusRefundPending, PaymentStatusRefunded, true},
		{PaymentStatusRefundPending, PaymentStatusPartiallyRefunded, true},
		{PaymentStatusRefundPending, PaymentStatusPaid, true},
		{PaymentStatusRefundPending, PaymentStatusDeposited, true},
		{PaymentStatusRefundPending, PaymentStatusFailed, false},
		// From partially_refunded
		{PaymentStatusPartiallyRefunded, PaymentStatusRefundPending, true},
		{PaymentStatusPartiallyRefunded, PaymentStatusRefunded, true},
		{PaymentStatusPartiallyRefunded, PaymentStatusPaid, false},
		// Terminal
		{PaymentStatusRefunded, PaymentStatusPending, false},
		{PaymentStatusRefunded, PaymentStatusRefundPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPaymentStatus_IsRefundable(t *testing.T) {
	assert.True(t, PaymentStatusPaid.IsRefundable())
	assert.True(t, PaymentStatusDeposited.IsRefundable())
	assert.True(t, PaymentStatusPartiallyRefunded.IsRefundable())
	assert.False(t, PaymentStatusPending.IsRefundable())
	assert.False(t, PaymentStatusDepositPending.IsRefundable())
	assert.False(t, PaymentStatusRefundPending.IsRefundable())
	assert.False(t, PaymentStatusRefunded.IsRefundable())
}

func TestType_IsValid(t *testing.T) {
	assert.True(t, TypeStandard.IsValid())
	assert.True(t, TypeDepositReservation.IsValid())
	assert.False(t, Type("subscription").IsValid())
}

func TestPaymentMethod_IsValid(t *testing.T) {
	assert.True(t, PaymentMethodCard.IsValid())
	assert.True(t, PaymentMethodBankTransfer.IsValid())
	assert.True(t, PaymentMethodCOD.IsValid())
	assert.False(t, PaymentMethod("crypto").IsValid())
}
