package order

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/auth"
)

// TrackingService answers guest order lookups. Every failure path returns the
// same shared.ErrNotFound so callers cannot probe which order codes exist or
// which contact is on file.
type TrackingService struct {
	orders order.Repository
	tokens auth.TrackingTokenStore
	logger *zap.Logger
}

// NewTrackingService creates a tracking service
func NewTrackingService(orders order.Repository, tokens auth.TrackingTokenStore, logger *zap.Logger) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{
		orders: orders,
		tokens: tokens,
		logger: logger,
	}
}

// normalizeContact canonicalizes an email or phone for comparison: trim,
// lowercase, and strip every internal whitespace rune. "  User@Mail.VN " and
// "user@mail.vn" must compare equal, as must "090 123 4567" and "0901234567".
func normalizeContact(contact string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(contact)) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeCode canonicalizes an order code for lookup
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the sanitized view of an order when the contact matches its
// email or phone on file
func (s *TrackingService) Lookup(ctx context.Context, code, contact string) (*OrderView, error) {
	code = normalizeCode(code)
	contact = normalizeContact(contact)
	if code == "" || contact == "" {
		return nil, shared.ErrNotFound
	}

	o, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		// Unknown code and wrong contact are indistinguishable to the caller
		return nil, shared.ErrNotFound
	}

	if !contactMatches(o, contact) {
		s.logger.Debug("Tracking lookup contact mismatch", zap.String("code", code))
		return nil, shared.ErrNotFound
	}

	return ToOrderView(o), nil
}

// LookupWithToken returns the sanitized view of an order when the tracking
// token is live and bound to it
func (s *TrackingService) LookupWithToken(ctx context.Context, code, token string) (*OrderView, error) {
	code = normalizeCode(code)
	if code == "" || token == "" {
		return nil, shared.ErrNotFound
	}

	o, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		return nil, shared.ErrNotFound
	}

	ok, err := s.tokens.Validate(ctx, o.ID, token)
	if err != nil {
		s.logger.Error("Tracking token validation failed",
			zap.String("code", code),
			zap.Error(err))
		return nil, shared.ErrNotFound
	}
	if !ok {
		return nil, shared.ErrNotFound
	}

	return ToOrderView(o), nil
}

// contactMatches reports whether the normalized contact equals the order's
// email or phone on file
func contactMatches(o *order.Order, normalized string) bool {
	if email := normalizeContact(o.Contact.Email); email != "" && email == normalized {
		return true
	}
	if phone := normalizeContact(o.Contact.Phone); phone != "" && phone == normalized {
		return true
	}
	return false
}
