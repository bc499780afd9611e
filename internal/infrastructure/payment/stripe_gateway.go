package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// CheckoutLine is one purchasable line on a checkout session
type CheckoutLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSessionInput contains input for creating a checkout session
type CheckoutSessionInput struct {
	OrderID       uuid.UUID
	OrderCode     string
	CustomerEmail string
	Lines         []CheckoutLine
	// ExpiresAt bounds how long the hosted page stays payable; zero means
	// Stripe's default
	ExpiresAt time.Time
}

// CheckoutSessionOutput contains the created session references
type CheckoutSessionOutput struct {
	SessionID       string
	PaymentIntentID string
	URL             string
}

// RefundInput contains input for creating a refund
type RefundInput struct {
	OrderID         uuid.UUID
	PaymentIntentID string
	// Amount is the refund amount in VND; zero-decimal so no conversion
	Amount int64
	Reason string
}

// RefundOutput contains the created refund references
type RefundOutput struct {
	RefundID string
	Status   string
}

// Gateway abstracts the payment provider for checkout, refunds, and
// webhook verification
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSessionOutput, error)
	CreateRefund(ctx context.Context, input RefundInput) (*RefundOutput, error)
	VerifyEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeGateway implements Gateway against the Stripe API
type StripeGateway struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.InitStripeClient()

	return &StripeGateway{
		config: config,
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a hosted checkout session for an order.
// The order ID rides in the session and payment-intent metadata so webhook
// events can always be traced back even if the session reference is lost.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSessionOutput, error) {
	g.logger.Debug("Creating Stripe checkout session",
		zap.String("order_id", input.OrderID.String()),
		zap.String("order_code", input.OrderCode))

	metadata := map[string]string{
		"order_id":   input.OrderID.String(),
		"order_code": input.OrderCode,
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.Lines))
	for _, line := range input.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.config.Currency),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(g.config.SuccessURL),
		CancelURL:  stripe.String(g.config.CancelURL),
		Metadata:   metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}

	if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}
	if !input.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(input.ExpiresAt.Unix())
	}

	sess, err := session.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", input.OrderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("order_id", input.OrderID.String()),
		zap.String("session_id", sess.ID))

	out := &CheckoutSessionOutput{
		SessionID: sess.ID,
		URL:       sess.URL,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

// CreateRefund refunds part or all of a captured payment
func (g *StripeGateway) CreateRefund(ctx context.Context, input RefundInput) (*RefundOutput, error) {
	g.logger.Debug("Creating Stripe refund",
		zap.String("order_id", input.OrderID.String()),
		zap.String("payment_intent_id", input.PaymentIntentID),
		zap.Int64("amount", input.Amount))

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(input.PaymentIntentID),
		Amount:        stripe.Int64(input.Amount),
		Metadata: map[string]string{
			"order_id": input.OrderID.String(),
			"reason":   input.Reason,
		},
	}

	ref, err := refund.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe refund",
			zap.String("order_id", input.OrderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create refund: %w", err)
	}

	g.logger.Info("Created Stripe refund",
		zap.String("order_id", input.OrderID.String()),
		zap.String("refund_id", ref.ID),
		zap.String("status", string(ref.Status)))

	return &RefundOutput{
		RefundID: ref.ID,
		Status:   string(ref.Status),
	}, nil
}

// VerifyEvent checks the webhook signature and returns the parsed event.
// Everything received on the webhook endpoint must pass through here before
// any field of the payload is trusted.
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.config.WebhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe: webhook signature verification failed: %w", err)
	}
	return event, nil
}

// Ensure StripeGateway implements Gateway
var _ Gateway = (*StripeGateway)(nil)
