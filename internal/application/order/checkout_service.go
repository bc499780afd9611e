package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/catalog"
	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/auth"
	"github.com/valveaudio/backend/internal/infrastructure/config"
	"github.com/valveaudio/backend/internal/infrastructure/payment"
)

// CheckoutService turns cart submissions into orders: it snapshots product
// lines, reserves stock, prepares the payment path for the chosen method,
// and hands the customer a tracking token.
type CheckoutService struct {
	orders     order.Repository
	products   catalog.ProductRepository
	gateway    payment.Gateway
	tokens     auth.TrackingTokenStore
	mailer     Mailer
	depositCfg config.DepositConfig
	logger     *zap.Logger
}

// NewCheckoutService creates a checkout service
func NewCheckoutService(orders order.Repository, products catalog.ProductRepository, gateway payment.Gateway, tokens auth.TrackingTokenStore, mailer Mailer, depositCfg config.DepositConfig, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		orders:     orders,
		products:   products,
		gateway:    gateway,
		tokens:     tokens,
		mailer:     mailer,
		depositCfg: depositCfg,
		logger:     logger,
	}
}

// Checkout creates an order from a cart submission
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	method := order.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}

	orderType := order.TypeStandard
	if req.Reserve {
		if method != order.PaymentMethodBankTransfer {
			return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD",
				"Deposit reservations are paid by bank transfer")
		}
		orderType = order.TypeDepositReservation
	}

	products, err := s.loadProducts(ctx, req.Items, orderType)
	if err != nil {
		return nil, err
	}

	code, err := s.orders.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order code: %w", err)
	}

	contact := order.Contact{
		Name:  req.CustomerName,
		Email: normalizeContact(req.CustomerEmail),
		Phone: normalizeContact(req.CustomerPhone),
	}
	o, err := order.NewOrder(code, orderType, method, contact, req.ShippingAddress, req.ShippingFee, 0, 0)
	if err != nil {
		return nil, err
	}

	for _, line := range req.Items {
		p := products[line.ProductID]
		if _, err := o.AddItem(p.ID, p.Name, p.Slug, p.Price, line.Quantity); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if orderType == order.TypeDepositReservation {
		deposit := depositAmount(o.TotalAmount, s.depositCfg.Percentage)
		if err := o.SetDeposit(deposit, now.Add(s.depositCfg.DueWindow)); err != nil {
			return nil, err
		}
		if err := o.AwaitDepositTransfer(); err != nil {
			return nil, err
		}
	}

	deducted, err := s.deductStock(ctx, req.Items)
	if err != nil {
		s.releaseStock(ctx, deducted)
		return nil, err
	}

	var paymentURL string
	if method == order.PaymentMethodCard {
		session, err := s.createSession(ctx, o)
		if err != nil {
			s.releaseStock(ctx, deducted)
			return nil, err
		}
		o.AttachStripeRefs(session.SessionID, session.PaymentIntentID)
		paymentURL = session.URL
	}

	if err := s.orders.Save(ctx, o); err != nil {
		s.releaseStock(ctx, deducted)
		return nil, fmt.Errorf("failed to save order %s: %w", code, err)
	}

	token, err := s.tokens.Issue(ctx, o.ID)
	if err != nil {
		// The order stands; the customer can still track by contact
		s.logger.Error("Failed to issue tracking token",
			zap.String("code", code),
			zap.Error(err))
		token = ""
	}

	s.logger.Info("Order created",
		zap.String("code", code),
		zap.String("type", orderType.String()),
		zap.String("payment_method", method.String()),
		zap.Int64("total_amount", o.TotalAmount))

	s.sendConfirmation(ctx, o, token)

	return &CheckoutResponse{
		Order:         ToOrderView(o),
		PaymentURL:    paymentURL,
		TrackingToken: token,
	}, nil
}

// loadProducts resolves and validates every cart line's product
func (s *CheckoutService) loadProducts(ctx context.Context, items []CheckoutItemRequest, orderType order.Type) (map[uuid.UUID]*catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, line := range items {
		if seen[line.ProductID] {
			return nil, shared.NewDomainError("INVALID_INPUT", "Duplicate product in cart")
		}
		seen[line.ProductID] = true
		ids = append(ids, line.ProductID)
	}

	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	for _, line := range items {
		p, ok := byID[line.ProductID]
		if !ok || !p.Active {
			return nil, shared.ErrNotFound
		}
		if orderType == order.TypeDepositReservation && !p.Reservable {
			return nil, shared.NewDomainError("NOT_RESERVABLE",
				fmt.Sprintf("Product %s cannot be reserved with a deposit", p.Name))
		}
	}

	return byID, nil
}

// deductStock reserves stock for every line, rolling back nothing itself;
// the returned slice tells the caller what to release on a later failure.
func (s *CheckoutService) deductStock(ctx context.Context, items []CheckoutItemRequest) ([]CheckoutItemRequest, error) {
	deducted := make([]CheckoutItemRequest, 0, len(items))
	for _, line := range items {
		if err := s.products.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
			return deducted, err
		}
		deducted = append(deducted, line)
	}
	return deducted, nil
}

// releaseStock returns previously deducted quantities after a failed checkout
func (s *CheckoutService) releaseStock(ctx context.Context, deducted []CheckoutItemRequest) {
	for _, line := range deducted {
		if err := s.products.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.logger.Error("Failed to release stock after checkout failure",
				zap.String("product_id", line.ProductID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}

// createSession opens a hosted Stripe checkout page for a card order
func (s *CheckoutService) createSession(ctx context.Context, o *order.Order) (*payment.CheckoutSessionOutput, error) {
	lines := make([]payment.CheckoutLine, 0, len(o.Items)+1)
	for i := range o.Items {
		lines = append(lines, payment.CheckoutLine{
			Name:       o.Items[i].ProductName,
			UnitAmount: o.Items[i].UnitPrice,
			Quantity:   int64(o.Items[i].Quantity),
		})
	}
	if o.ShippingFee > 0 {
		lines = append(lines, payment.CheckoutLine{
			Name:       "Shipping",
			UnitAmount: o.ShippingFee,
			Quantity:   1,
		})
	}

	out, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutSessionInput{
		OrderID:       o.ID,
		OrderCode:     o.Code,
		CustomerEmail: o.Contact.Email,
		Lines:         lines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session for %s: %w", o.Code, err)
	}
	return out, nil
}

// sendConfirmation mails the order code and tracking token, best effort
func (s *CheckoutService) sendConfirmation(ctx context.Context, o *order.Order, token string) {
	if s.mailer == nil || o.Contact.Email == "" {
		return
	}

	body := fmt.Sprintf("Thank you for your order %s (total %d VND).", o.Code, o.TotalAmount)
	if o.Type == order.TypeDepositReservation && o.DepositDueAt != nil {
		body += fmt.Sprintf("\nPlease transfer the deposit of %d VND before %s and upload your receipt.",
			o.DepositAmount, o.DepositDueAt.Format("2006-01-02 15:04"))
	}
	if token != "" {
		body += "\nTrack your order with this link token: " + token
	}

	if err := s.mailer.Send(ctx, o.Contact.Email, "Order confirmation "+o.Code, body); err != nil {
		s.logger.Warn("Failed to send confirmation mail",
			zap.String("code", o.Code),
			zap.Error(err))
	}
}

// depositAmount computes the deposit due for a total at the configured
// percentage, rounded up to a whole dong so the deposit never undershoots.
func depositAmount(total int64, percentage int) int64 {
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(int64(percentage))).
		Div(decimal.NewFromInt(100)).
		Ceil().
		IntPart()
}
