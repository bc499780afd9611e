package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/catalog"
	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/auth"
)

// LifecycleService drives order status transitions for customers and admins.
// Customer-facing entry points authenticate with a tracking token; admin
// entry points receive the acting admin's ID from the JWT middleware.
type LifecycleService struct {
	orders   order.Repository
	products catalog.ProductRepository
	tokens   auth.TrackingTokenStore
	mailer   Mailer
	logger   *zap.Logger
}

// NewLifecycleService creates a lifecycle service
func NewLifecycleService(orders order.Repository, products catalog.ProductRepository, tokens auth.TrackingTokenStore, mailer Mailer, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		orders:   orders,
		products: products,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
	}
}

// authenticate loads the order and checks the tracking token. All failures
// collapse to shared.ErrNotFound.
func (s *LifecycleService) authenticate(ctx context.Context, code, token string) (*order.Order, error) {
	code = normalizeCode(code)
	if code == "" || token == "" {
		return nil, shared.ErrNotFound
	}

	o, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	ok, err := s.tokens.Validate(ctx, o.ID, token)
	if err != nil || !ok {
		return nil, shared.ErrNotFound
	}

	return o, nil
}

// Cancel cancels an order on the customer's behalf. The status write is a
// guarded single-winner transition; inventory restoration and the
// notification mail run only on the winning path, so a double-submit can
// never restore stock twice.
func (s *LifecycleService) Cancel(ctx context.Context, code, token, reason string) (*OrderView, error) {
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	o, err := s.authenticate(ctx, code, token)
	if err != nil {
		return nil, err
	}

	if !o.CanBeCancelledByCustomer() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Order in %s status can no longer be cancelled", o.Status))
	}

	from := o.Status
	hist := order.NewStatusHistory(o.ID, &from, order.StatusCancelled, "Cancelled by customer: "+reason, nil)
	won, err := s.orders.TransitionStatus(ctx, o.ID, from, order.StatusCancelled, nil, hist)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", o.Code, err)
	}
	if !won {
		return nil, shared.ErrConcurrencyConflict
	}

	restoreStock(ctx, s.products, o, s.logger)

	s.logger.Info("Order cancelled by customer",
		zap.String("code", o.Code),
		zap.String("from_status", from.String()))

	s.sendMail(ctx, o, "Your order "+o.Code+" has been cancelled",
		fmt.Sprintf("Order %s was cancelled as requested. Reason: %s", o.Code, reason))

	refreshed, err := s.orders.FindByID(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return ToOrderView(refreshed), nil
}

// RequestChange appends a change request to the order's audit trail and
// notifies the shop. The order itself is not mutated; an admin follows up.
func (s *LifecycleService) RequestChange(ctx context.Context, code, token string, req ChangeRequest) error {
	o, err := s.authenticate(ctx, code, token)
	if err != nil {
		return err
	}

	if o.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Order in %s status cannot be changed", o.Status))
	}

	// History-only insert: a full-row save here could overwrite a cancel or
	// webhook settle landing between load and write.
	cur := o.Status
	note := fmt.Sprintf("Change requested (%s): %s", req.Category, req.Message)
	o.AddDomainEvent(order.NewChangeRequestedEvent(o, req.Category, req.Message))

	if err := s.orders.AppendHistory(ctx, order.NewStatusHistory(o.ID, &cur, cur, note, nil)); err != nil {
		return fmt.Errorf("failed to record change request for %s: %w", o.Code, err)
	}

	s.logger.Info("Change request recorded",
		zap.String("code", o.Code),
		zap.String("category", req.Category))

	s.sendMail(ctx, o, "We received your change request for "+o.Code,
		fmt.Sprintf("Your request (%s) for order %s is with our staff and will be handled shortly.", req.Category, o.Code))

	return nil
}

// Claim binds a guest order to an authenticated user. The caller proves
// ownership with a live tracking token or the contact on file; an order can
// be claimed exactly once.
func (s *LifecycleService) Claim(ctx context.Context, code string, userID uuid.UUID, req ClaimRequest) (*OrderResponse, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, shared.ErrNotFound
	}

	o, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	verified := false
	if req.Token != "" {
		ok, err := s.tokens.Validate(ctx, o.ID, req.Token)
		if err == nil && ok {
			verified = true
		}
	}
	if !verified && req.Contact != "" {
		verified = contactMatches(o, normalizeContact(req.Contact))
	}
	if !verified {
		return nil, shared.ErrNotFound
	}

	if err := o.Claim(userID); err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to claim order %s: %w", o.Code, err)
	}

	s.logger.Info("Order claimed",
		zap.String("code", o.Code),
		zap.String("user_id", userID.String()))

	return ToOrderResponse(o), nil
}

// ============================================================================
// Admin operations
// ============================================================================

// Confirm confirms a pending order for fulfillment
func (s *LifecycleService) Confirm(ctx context.Context, orderID, adminID uuid.UUID) (*OrderResponse, error) {
	return s.adminTransition(ctx, orderID, func(o *order.Order) error {
		return o.Confirm(&adminID)
	})
}

// StartProcessing moves an order into fulfillment
func (s *LifecycleService) StartProcessing(ctx context.Context, orderID, adminID uuid.UUID) (*OrderResponse, error) {
	return s.adminTransition(ctx, orderID, func(o *order.Order) error {
		return o.StartProcessing(&adminID)
	})
}

// Ship marks an order shipped and mails the customer
func (s *LifecycleService) Ship(ctx context.Context, orderID, adminID uuid.UUID) (*OrderResponse, error) {
	resp, err := s.adminTransition(ctx, orderID, func(o *order.Order) error {
		return o.Ship(&adminID)
	})
	if err != nil {
		return nil, err
	}

	if o, ferr := s.orders.FindByID(ctx, orderID); ferr == nil {
		s.sendMail(ctx, o, "Your order "+o.Code+" has shipped",
			fmt.Sprintf("Order %s is on its way to you.", o.Code))
	}
	return resp, nil
}

// Deliver marks an order delivered
func (s *LifecycleService) Deliver(ctx context.Context, orderID, adminID uuid.UUID) (*OrderResponse, error) {
	return s.adminTransition(ctx, orderID, func(o *order.Order) error {
		return o.Deliver(&adminID)
	})
}

// AdminCancel cancels an order from the back office. The guarded transition
// keeps it race-safe against customer cancels and the expiry sweep.
func (s *LifecycleService) AdminCancel(ctx context.Context, orderID, adminID uuid.UUID, reason string) (*OrderResponse, error) {
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(order.StatusCancelled) {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	from := o.Status
	hist := order.NewStatusHistory(o.ID, &from, order.StatusCancelled, "Cancelled by staff: "+reason, &adminID)
	won, err := s.orders.TransitionStatus(ctx, o.ID, from, order.StatusCancelled, nil, hist)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", o.Code, err)
	}
	if !won {
		return nil, shared.ErrConcurrencyConflict
	}

	restoreStock(ctx, s.products, o, s.logger)

	s.sendMail(ctx, o, "Your order "+o.Code+" has been cancelled",
		fmt.Sprintf("Order %s was cancelled by our staff. Reason: %s", o.Code, reason))

	refreshed, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(refreshed), nil
}

// Get returns the full admin projection of one order
func (s *LifecycleService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(o), nil
}

// GetByCode returns the full admin projection of the order with the given
// code
func (s *LifecycleService) GetByCode(ctx context.Context, code string) (*OrderResponse, error) {
	o, err := s.orders.FindByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(o), nil
}

// List returns a filtered admin order listing
func (s *LifecycleService) List(ctx context.Context, req OrderFilterRequest) (*shared.Paginated[OrderResponse], error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	filter.Search = req.Search
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}
	if req.PaymentStatus != "" {
		filter.Filters["payment_status"] = req.PaymentStatus
	}
	if req.Type != "" {
		filter.Filters["type"] = req.Type
	}
	if req.PaymentMethod != "" {
		filter.Filters["payment_method"] = req.PaymentMethod
	}

	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	items := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, *ToOrderResponse(&orders[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// adminTransition loads, mutates, and persists with the optimistic lock
func (s *LifecycleService) adminTransition(ctx context.Context, orderID uuid.UUID, mutate func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := mutate(o); err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order %s: %w", o.Code, err)
	}

	return ToOrderResponse(o), nil
}

// sendMail delivers a best-effort notification when the order has an email
func (s *LifecycleService) sendMail(ctx context.Context, o *order.Order, subject, body string) {
	if s.mailer == nil || o.Contact.Email == "" {
		return
	}
	if err := s.mailer.Send(ctx, o.Contact.Email, subject, body); err != nil {
		s.logger.Warn("Failed to send order mail",
			zap.String("code", o.Code),
			zap.Error(err))
	}
}

// restoreStock returns every line's quantity to the catalog after a
// cancellation or expiry. It runs only after a won status transition, so it
// executes at most once per order; individual failures are logged and the
// remaining lines still restore.
func restoreStock(ctx context.Context, products catalog.ProductRepository, o *order.Order, logger *zap.Logger) {
	for i := range o.Items {
		item := &o.Items[i]
		if err := products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			logger.Error("Failed to restore stock",
				zap.String("code", o.Code),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}
