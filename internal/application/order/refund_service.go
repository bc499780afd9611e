package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/payment"
)

// RefundService hands admin refund requests to the payment gateway. The
// requested amount is clamped to what is actually refundable: the captured
// base (deposit for reservations, total otherwise) minus everything already
// refunded. The refund_pending state is persisted before the gateway call so
// a crash in between leaves an auditable trail; the final payment state only
// ever arrives through the gateway's webhook.
type RefundService struct {
	orders  order.Repository
	gateway payment.Gateway
	logger  *zap.Logger
}

// NewRefundService creates a refund service
func NewRefundService(orders order.Repository, gateway payment.Gateway, logger *zap.Logger) *RefundService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefundService{
		orders:  orders,
		gateway: gateway,
		logger:  logger,
	}
}

// Refund requests a refund for an order. A zero requested amount means
// "everything still refundable".
func (s *RefundService) Refund(ctx context.Context, orderID uuid.UUID, req RefundRequest, adminID uuid.UUID) (*RefundResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.PaymentStatus.IsRefundable() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot refund an order in %s payment status", o.PaymentStatus))
	}
	if o.StripePaymentIntentID == "" {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Order has no captured gateway payment to refund")
	}

	refundable := o.RefundableAmount()
	if refundable == 0 {
		return nil, shared.NewDomainError("INVALID_STATE", "Order is already fully refunded")
	}

	amount := req.Amount
	if amount <= 0 || amount > refundable {
		amount = refundable
	}

	if err := o.BeginRefund(amount); err != nil {
		return nil, err
	}
	cur := o.Status
	o.History = append(o.History, *order.NewStatusHistory(o.ID, &cur, cur,
		fmt.Sprintf("Refund of %d VND requested: %s", amount, req.Reason), &adminID))

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to record refund request for %s: %w", o.Code, err)
	}

	out, err := s.gateway.CreateRefund(ctx, payment.RefundInput{
		OrderID:         o.ID,
		PaymentIntentID: o.StripePaymentIntentID,
		Amount:          amount,
		Reason:          req.Reason,
	})
	if err != nil {
		s.logger.Error("Gateway refund failed, reverting payment state",
			zap.String("code", o.Code),
			zap.Int64("amount", amount),
			zap.Error(err))
		if rerr := o.FailRefund(); rerr == nil {
			if serr := s.orders.SaveWithLock(ctx, o); serr != nil {
				s.logger.Error("Failed to revert refund state",
					zap.String("code", o.Code),
					zap.Error(serr))
			}
		}
		return nil, fmt.Errorf("failed to refund order %s: %w", o.Code, err)
	}

	s.logger.Info("Refund submitted to gateway",
		zap.String("code", o.Code),
		zap.String("refund_id", out.RefundID),
		zap.Int64("amount", amount))

	return &RefundResponse{
		OrderCode: o.Code,
		RefundID:  out.RefundID,
		Amount:    amount,
		Status:    out.Status,
	}, nil
}
