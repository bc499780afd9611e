package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/payment"
)

// WebhookService reconciles Stripe events into order state. Duplicate
// deliveries are suppressed twice: a fast-path idempotency store answers
// retries cheaply, and the unique gateway event ID on payment transactions
// guarantees an event applies at most once even if the fast path is cold.
type WebhookService struct {
	gateway      payment.Gateway
	orders       order.Repository
	transactions order.PaymentTransactionRepository
	idempotency  shared.IdempotencyStore
	eventTTL     time.Duration
	logger       *zap.Logger
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Gateway      payment.Gateway
	Orders       order.Repository
	Transactions order.PaymentTransactionRepository
	Idempotency  shared.IdempotencyStore
	// EventTTL is how long processed event IDs stay in the fast path;
	// it must exceed the gateway's retry window
	EventTTL time.Duration
	Logger   *zap.Logger
}

// NewWebhookService creates a webhook service
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = shared.DefaultIdempotencyConfig().TTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &WebhookService{
		gateway:      cfg.Gateway,
		orders:       cfg.Orders,
		transactions: cfg.Transactions,
		idempotency:  cfg.Idempotency,
		eventTTL:     cfg.EventTTL,
		logger:       cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and applies one Stripe event. A non-nil error
// means the handler should return a retryable failure; every acknowledged
// outcome (duplicates, unknown types, unmatched orders) returns nil so the
// gateway stops retrying.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.VerifyEvent(payload, signature)
	if err != nil {
		s.logger.Error("Webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	seen, err := s.idempotency.IsProcessed(ctx, event.ID)
	if err != nil {
		// Fast path down; the durable transaction insert still dedupes
		s.logger.Warn("Idempotency store unavailable",
			zap.String("event_id", event.ID),
			zap.Error(err))
	} else if seen {
		result.Processed = false
		result.Message = "Duplicate event"
		return result, nil
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch event.Type {
	case "checkout.session.completed":
		err = s.handleSessionCompleted(ctx, event, result)
	case "payment_intent.succeeded":
		err = s.handlePaymentSucceeded(ctx, event, result)
	case "payment_intent.payment_failed":
		err = s.handlePaymentFailed(ctx, event, result)
	case "charge.refunded":
		err = s.handleChargeRefunded(ctx, event, result)
	case "refund.updated":
		err = s.handleRefundUpdated(ctx, event, result)
	case "refund.failed":
		err = s.handleRefundFailed(ctx, event, result)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Processed = false
		result.Message = "Event type not handled"
	}

	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			result.Processed = false
			result.Message = "Duplicate event"
			return result, nil
		}
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	if _, merr := s.idempotency.MarkProcessed(ctx, event.ID, s.eventTTL); merr != nil {
		s.logger.Warn("Failed to mark event processed",
			zap.String("event_id", event.ID),
			zap.Error(merr))
	}

	return result, nil
}

// handleSessionCompleted applies a paid checkout session to its order
func (s *WebhookService) handleSessionCompleted(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	o, err := s.resolveOrder(ctx, session.Metadata, session.ID, "")
	if err != nil {
		return s.acknowledgeUnmatched(err, result, "session", session.ID)
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	if err := s.recordTransaction(ctx, o, event, session.AmountTotal, paymentIntentID); err != nil {
		return err
	}

	o.AttachStripeRefs(session.ID, paymentIntentID)

	if o.PaymentStatus == order.PaymentStatusPaid {
		result.Message = "Order already paid"
		return s.orders.SaveWithLock(ctx, o)
	}

	if o.Type == order.TypeDepositReservation && o.PaymentStatus == order.PaymentStatusDepositPending {
		if err := o.MarkDeposited(time.Now()); err != nil {
			return err
		}
	} else {
		if err := o.MarkPaid(); err != nil {
			return err
		}
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}

	s.logger.Info("Checkout session settled",
		zap.String("code", o.Code),
		zap.String("session_id", session.ID))
	return nil
}

// handlePaymentSucceeded confirms a captured payment intent. Usually the
// session-completed event already settled the order; this one closes the gap
// when the events arrive out of order.
func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	o, err := s.resolveOrder(ctx, intent.Metadata, "", intent.ID)
	if err != nil {
		return s.acknowledgeUnmatched(err, result, "payment_intent", intent.ID)
	}

	if err := s.recordTransaction(ctx, o, event, intent.Amount, intent.ID); err != nil {
		return err
	}

	o.AttachStripeRefs("", intent.ID)

	switch o.PaymentStatus {
	case order.PaymentStatusPaid, order.PaymentStatusDeposited:
		result.Message = "Payment already settled"
	case order.PaymentStatusDepositPending:
		if err := o.MarkDeposited(time.Now()); err != nil {
			return err
		}
	default:
		if err := o.MarkPaid(); err != nil {
			return err
		}
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}
	return nil
}

// handlePaymentFailed records a failed capture
func (s *WebhookService) handlePaymentFailed(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	o, err := s.resolveOrder(ctx, intent.Metadata, "", intent.ID)
	if err != nil {
		return s.acknowledgeUnmatched(err, result, "payment_intent", intent.ID)
	}

	if err := s.recordTransaction(ctx, o, event, intent.Amount, intent.ID); err != nil {
		return err
	}

	reason := "Payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}
	if err := o.FailPayment(reason); err != nil {
		// A failure event after a success event changes nothing
		s.logger.Warn("Ignoring stale payment failure",
			zap.String("code", o.Code),
			zap.String("payment_status", o.PaymentStatus.String()))
		result.Message = "Payment already settled"
		return nil
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}

	s.logger.Info("Payment failure recorded",
		zap.String("code", o.Code),
		zap.String("reason", reason))
	return nil
}

// handleChargeRefunded settles refunds by the charge's cumulative refunded
// amount, so replays and overlapping refund events converge on the same total
func (s *WebhookService) handleChargeRefunded(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	paymentIntentID := ""
	if charge.PaymentIntent != nil {
		paymentIntentID = charge.PaymentIntent.ID
	}

	o, err := s.resolveOrder(ctx, charge.Metadata, "", paymentIntentID)
	if err != nil {
		return s.acknowledgeUnmatched(err, result, "charge", charge.ID)
	}

	if err := s.recordTransaction(ctx, o, event, charge.AmountRefunded, paymentIntentID); err != nil {
		return err
	}

	delta := charge.AmountRefunded - o.RefundedAmount
	if delta <= 0 {
		result.Message = "Refund already settled"
		return nil
	}

	if err := o.SettleRefund(delta); err != nil {
		return err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}

	s.logger.Info("Refund settled",
		zap.String("code", o.Code),
		zap.Int64("amount", delta),
		zap.String("payment_status", o.PaymentStatus.String()))
	return nil
}

// handleRefundUpdated settles a succeeded refund when the charge event has
// not arrived yet
func (s *WebhookService) handleRefundUpdated(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var re stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &re); err != nil {
		return fmt.Errorf("failed to unmarshal refund: %w", err)
	}

	if re.Status != stripe.RefundStatusSucceeded {
		result.Message = "Refund not final yet"
		return nil
	}

	paymentIntentID := ""
	if re.PaymentIntent != nil {
		paymentIntentID = re.PaymentIntent.ID
	}

	o, err := s.resolveOrder(ctx, re.Metadata, "", paymentIntentID)
	if err != nil {
		return s.acknowledgeUnmatched(err, result, "refund", re.ID)
	}

	if err := s.recordTransaction(ctx, o, event, re.Amount, paymentIntentID); err != nil {
		return err
	}

	if o.PaymentStatus != order.PaymentStatusRefundPending {
		// Another refund event already moved the accumulator
		result.Message = "Refund already settled"
		return nil
	}

	if err := o.SettleRefund(re.Amount); err != nil {
		return err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}
	return nil
}

// handleRefundFailed returns a pending refund to its prior payment state
func (s *WebhookService) handleRefundFailed(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var re stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &re); err != nil {
		return fmt.Errorf("failed to unmarshal refund: %w", err)
	}

	paymentIntentID := ""
	if re.PaymentIntent != nil {
		paymentIntentID = re.PaymentIntent.ID
	}

	o, err := s.resolveOrder(ctx, re.Metadata, "", paymentIntentID)
	if err != nil {
		return s.acknowledgeUnmatched(err, result, "refund", re.ID)
	}

	if err := s.recordTransaction(ctx, o, event, re.Amount, paymentIntentID); err != nil {
		return err
	}

	if err := o.FailRefund(); err != nil {
		result.Message = "No refund pending"
		return nil
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}

	s.logger.Warn("Gateway refund failed",
		zap.String("code", o.Code),
		zap.String("refund_id", re.ID))
	return nil
}

// resolveOrder finds the order an event belongs to: the order_id metadata
// stamped at session creation wins, then the session or payment intent
// reference.
func (s *WebhookService) resolveOrder(ctx context.Context, metadata map[string]string, sessionID, paymentIntentID string) (*order.Order, error) {
	if raw, ok := metadata["order_id"]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			if o, err := s.orders.FindByID(ctx, id); err == nil {
				return o, nil
			}
		}
	}
	if sessionID != "" {
		if o, err := s.orders.FindByStripeSession(ctx, sessionID); err == nil {
			return o, nil
		}
	}
	if paymentIntentID != "" {
		if o, err := s.orders.FindByPaymentIntent(ctx, paymentIntentID); err == nil {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

// acknowledgeUnmatched swallows ErrNotFound: events for orders we do not
// know (test events, deleted data) are acknowledged so the gateway stops
// retrying them. Anything else propagates for a retry.
func (s *WebhookService) acknowledgeUnmatched(err error, result *WebhookResult, refKind, ref string) error {
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("No order matches webhook event",
			zap.String(refKind, ref))
		result.Processed = false
		result.Message = "No matching order"
		return nil
	}
	return err
}

// recordTransaction writes the durable per-event row. shared.ErrAlreadyExists
// propagates to the dispatcher, which acknowledges the duplicate.
func (s *WebhookService) recordTransaction(ctx context.Context, o *order.Order, event stripe.Event, amount int64, paymentIntentID string) error {
	tx, err := order.NewPaymentTransaction(o.ID, event.ID, string(event.Type), amount, paymentIntentID, event.Data.Raw)
	if err != nil {
		return err
	}
	if err := s.transactions.Record(ctx, tx); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to record payment transaction: %w", err)
	}
	return nil
}
