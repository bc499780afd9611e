package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/payment"
)

// paidOrder builds a paid standard order with a captured payment intent
func paidOrder(t *testing.T) *order.Order {
	t.Helper()
	o := fixtureStandardOrder()
	o.AttachStripeRefs("cs_test_a1b2c3", "pi_test_d4e5f6")
	require.NoError(t, o.MarkPaid())
	return o
}

// depositedReservation builds a reservation with its deposit captured
func depositedReservation(t *testing.T) *order.Order {
	t.Helper()
	o := fixtureReservation(time.Now().Add(72 * time.Hour))
	o.AttachStripeRefs("", "pi_test_deposit1")
	require.NoError(t, o.MarkDeposited(time.Now()))
	return o
}

func TestRefundService_Refund(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("refunds the requested amount", func(t *testing.T) {
		orders := new(MockOrderRepository)
		gateway := new(MockGateway)
		o := paidOrder(t)

		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("SaveWithLock", ctx, o).Return(nil)

		var input payment.RefundInput
		gateway.On("CreateRefund", ctx, mock.AnythingOfType("payment.RefundInput")).
			Run(func(args mock.Arguments) {
				input = args.Get(1).(payment.RefundInput)
			}).
			Return(&payment.RefundOutput{RefundID: "re_test_123", Status: "pending"}, nil)

		svc := NewRefundService(orders, gateway, nil)
		resp, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 10000000, Reason: "Damaged in transit"}, adminID)

		require.NoError(t, err)
		assert.Equal(t, "re_test_123", resp.RefundID)
		assert.Equal(t, int64(10000000), resp.Amount)
		assert.Equal(t, "pending", resp.Status)

		assert.Equal(t, int64(10000000), input.Amount)
		assert.Equal(t, "pi_test_d4e5f6", input.PaymentIntentID)

		// refund_pending was persisted before the gateway call
		assert.Equal(t, order.PaymentStatusRefundPending, o.PaymentStatus)
		assert.Equal(t, int64(10000000), o.PendingRefundAmount)
		last := o.History[len(o.History)-1]
		assert.Contains(t, last.Note, "Damaged in transit")
		require.NotNil(t, last.ChangedBy)
		assert.Equal(t, adminID, *last.ChangedBy)
	})

	t.Run("clamps an excessive request to the refundable base", func(t *testing.T) {
		orders := new(MockOrderRepository)
		gateway := new(MockGateway)
		o := paidOrder(t)

		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("SaveWithLock", ctx, o).Return(nil)

		var input payment.RefundInput
		gateway.On("CreateRefund", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				input = args.Get(1).(payment.RefundInput)
			}).
			Return(&payment.RefundOutput{RefundID: "re_test_124", Status: "pending"}, nil)

		svc := NewRefundService(orders, gateway, nil)
		resp, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 999999999999, Reason: "full refund"}, adminID)

		require.NoError(t, err)
		assert.Equal(t, o.TotalAmount, resp.Amount)
		assert.Equal(t, o.TotalAmount, input.Amount)
	})

	t.Run("zero amount means everything still refundable", func(t *testing.T) {
		orders := new(MockOrderRepository)
		gateway := new(MockGateway)
		o := paidOrder(t)
		require.NoError(t, o.BeginRefund(5000000))
		require.NoError(t, o.SettleRefund(5000000))

		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("SaveWithLock", ctx, o).Return(nil)
		gateway.On("CreateRefund", ctx, mock.Anything).
			Return(&payment.RefundOutput{RefundID: "re_test_125", Status: "pending"}, nil)

		svc := NewRefundService(orders, gateway, nil)
		resp, err := svc.Refund(ctx, o.ID, RefundRequest{Reason: "customer request"}, adminID)

		require.NoError(t, err)
		assert.Equal(t, o.TotalAmount-5000000, resp.Amount)
	})

	t.Run("deposit reservation refunds against the deposit only", func(t *testing.T) {
		orders := new(MockOrderRepository)
		gateway := new(MockGateway)
		o := depositedReservation(t)

		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("SaveWithLock", ctx, o).Return(nil)

		var input payment.RefundInput
		gateway.On("CreateRefund", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				input = args.Get(1).(payment.RefundInput)
			}).
			Return(&payment.RefundOutput{RefundID: "re_test_126", Status: "pending"}, nil)

		svc := NewRefundService(orders, gateway, nil)
		resp, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 999999999, Reason: "reservation released"}, adminID)

		require.NoError(t, err)
		assert.Equal(t, o.DepositAmount, resp.Amount)
		assert.Equal(t, o.DepositAmount, input.Amount)
	})

	t.Run("fully refunded order is refused", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := paidOrder(t)
		require.NoError(t, o.BeginRefund(o.TotalAmount))
		require.NoError(t, o.SettleRefund(o.TotalAmount))

		orders.On("FindByID", ctx, o.ID).Return(o, nil)

		svc := NewRefundService(orders, new(MockGateway), nil)
		_, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 1000, Reason: "again"}, adminID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("pending or unpaid orders cannot be refunded", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := fixtureStandardOrder()

		orders.On("FindByID", ctx, o.ID).Return(o, nil)

		svc := NewRefundService(orders, new(MockGateway), nil)
		_, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 1000, Reason: "no"}, adminID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("order without a gateway capture is refused", func(t *testing.T) {
		orders := new(MockOrderRepository)
		o := fixtureReservation(time.Now().Add(72 * time.Hour))
		require.NoError(t, o.MarkDeposited(time.Now())) // bank transfer, no intent

		orders.On("FindByID", ctx, o.ID).Return(o, nil)

		svc := NewRefundService(orders, new(MockGateway), nil)
		_, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 1000, Reason: "cash refund instead"}, adminID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("gateway failure reverts the payment state", func(t *testing.T) {
		orders := new(MockOrderRepository)
		gateway := new(MockGateway)
		o := paidOrder(t)

		orders.On("FindByID", ctx, o.ID).Return(o, nil)
		orders.On("SaveWithLock", ctx, o).Return(nil)
		gateway.On("CreateRefund", ctx, mock.Anything).Return(nil, fmt.Errorf("stripe unavailable"))

		svc := NewRefundService(orders, gateway, nil)
		_, err := svc.Refund(ctx, o.ID, RefundRequest{Amount: 10000000, Reason: "test"}, adminID)

		assert.Error(t, err)
		assert.Equal(t, order.PaymentStatusPaid, o.PaymentStatus)
		assert.Equal(t, int64(0), o.PendingRefundAmount)
	})
}
