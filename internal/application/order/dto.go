package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/order"
)

// ============================================================================
// Requests
// ============================================================================

// CheckoutItemRequest is one cart line submitted at checkout
type CheckoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=99"`
}

// CheckoutRequest creates an order from a cart submission. Reserve switches
// the order into the deposit-reservation flow, which requires bank transfer.
type CheckoutRequest struct {
	Items           []CheckoutItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
	CustomerName    string                `json:"customer_name" binding:"required,min=1,max=200"`
	CustomerEmail   string                `json:"customer_email" binding:"omitempty,email,max=200"`
	CustomerPhone   string                `json:"customer_phone" binding:"omitempty,max=30"`
	ShippingAddress string                `json:"shipping_address" binding:"omitempty,max=500"`
	PaymentMethod   string                `json:"payment_method" binding:"required,oneof=card bank_transfer cod"`
	Reserve         bool                  `json:"reserve"`
	ShippingFee     int64                 `json:"shipping_fee" binding:"omitempty,min=0"`
}

// TrackRequest looks an order up by code plus a matching contact
type TrackRequest struct {
	Code    string `json:"code" form:"code" binding:"required,max=30"`
	Contact string `json:"contact" form:"contact" binding:"required,max=200"`
}

// CancelRequest cancels an order on the customer's behalf
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ChangeRequest records a customer change request without mutating the order
type ChangeRequest struct {
	Category string `json:"category" binding:"required,oneof=address items payment other"`
	Message  string `json:"message" binding:"required,min=1,max=1000"`
}

// ClaimRequest binds a guest order to an authenticated account. Either a live
// tracking token or the order's contact must be presented.
type ClaimRequest struct {
	Token   string `json:"token" binding:"omitempty,max=100"`
	Contact string `json:"contact" binding:"omitempty,max=200"`
}

// ReviewProofRequest is the admin decision on a transfer proof
type ReviewProofRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" binding:"max=500"`
}

// RefundRequest asks the gateway to return money for an order. A zero amount
// means "refund everything still refundable".
type RefundRequest struct {
	Amount int64  `json:"amount" binding:"omitempty,min=0"`
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// AdminActionRequest carries an optional note for admin status transitions
type AdminActionRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// OrderFilterRequest narrows admin order listings
type OrderFilterRequest struct {
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status        string `form:"status" binding:"omitempty"`
	PaymentStatus string `form:"payment_status" binding:"omitempty"`
	Type          string `form:"type" binding:"omitempty"`
	PaymentMethod string `form:"payment_method" binding:"omitempty"`
	Search        string `form:"search" binding:"omitempty,max=200"`
}

// ============================================================================
// Responses
// ============================================================================

// ItemResponse is one order line
type ItemResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	ProductSlug string    `json:"product_slug,omitempty"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	Subtotal    int64     `json:"subtotal"`
}

// HistoryResponse is one audit-trail entry
type HistoryResponse struct {
	FromStatus *string   `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderView is the customer-facing projection of an order. It carries no
// admin identities and no gateway references.
type OrderView struct {
	Code            string            `json:"code"`
	Type            string            `json:"type"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentMethod   string            `json:"payment_method"`
	CustomerName    string            `json:"customer_name"`
	ShippingAddress string            `json:"shipping_address,omitempty"`
	SubtotalAmount  int64             `json:"subtotal_amount"`
	ShippingFee     int64             `json:"shipping_fee"`
	TotalAmount     int64             `json:"total_amount"`
	DepositAmount   int64             `json:"deposit_amount,omitempty"`
	RemainingAmount int64             `json:"remaining_amount,omitempty"`
	DepositDueAt    *time.Time        `json:"deposit_due_at,omitempty"`
	Items           []ItemResponse    `json:"items"`
	History         []HistoryResponse `json:"history"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OrderResponse is the full admin projection of an order
type OrderResponse struct {
	ID                    uuid.UUID         `json:"id"`
	Code                  string            `json:"code"`
	Type                  string            `json:"type"`
	Status                string            `json:"status"`
	PaymentStatus         string            `json:"payment_status"`
	PaymentMethod         string            `json:"payment_method"`
	CustomerName          string            `json:"customer_name"`
	CustomerEmail         string            `json:"customer_email,omitempty"`
	CustomerPhone         string            `json:"customer_phone,omitempty"`
	ShippingAddress       string            `json:"shipping_address,omitempty"`
	UserID                *uuid.UUID        `json:"user_id,omitempty"`
	SubtotalAmount        int64             `json:"subtotal_amount"`
	ShippingFee           int64             `json:"shipping_fee"`
	TaxAmount             int64             `json:"tax_amount"`
	DiscountAmount        int64             `json:"discount_amount"`
	TotalAmount           int64             `json:"total_amount"`
	DepositAmount         int64             `json:"deposit_amount"`
	RemainingAmount       int64             `json:"remaining_amount"`
	DepositDueAt          *time.Time        `json:"deposit_due_at,omitempty"`
	DepositReceivedAt     *time.Time        `json:"deposit_received_at,omitempty"`
	RefundedAmount        int64             `json:"refunded_amount"`
	PendingRefundAmount   int64             `json:"pending_refund_amount"`
	RefundableAmount      int64             `json:"refundable_amount"`
	StripeSessionID       string            `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string            `json:"stripe_payment_intent_id,omitempty"`
	CancelReason          string            `json:"cancel_reason,omitempty"`
	Items                 []ItemResponse    `json:"items"`
	History               []HistoryResponse `json:"history"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// CheckoutResponse is returned from a successful checkout. PaymentURL is set
// for card payments only; the tracking token is shown exactly once.
type CheckoutResponse struct {
	Order         *OrderView `json:"order"`
	PaymentURL    string     `json:"payment_url,omitempty"`
	TrackingToken string     `json:"tracking_token"`
}

// ProofImageResponse is one stored proof image with a short-lived view URL
type ProofImageResponse struct {
	Position    int       `json:"position"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	URLExpires  time.Time `json:"url_expires,omitempty"`
}

// ProofResponse is a transfer proof with its review state
type ProofResponse struct {
	ID           uuid.UUID            `json:"id"`
	OrderID      uuid.UUID            `json:"order_id"`
	Status       string               `json:"status"`
	Note         string               `json:"note,omitempty"`
	ReviewerNote string               `json:"reviewer_note,omitempty"`
	Images       []ProofImageResponse `json:"images"`
	SubmittedAt  time.Time            `json:"submitted_at"`
	ReviewedAt   *time.Time           `json:"reviewed_at,omitempty"`
}

// RefundResponse reports a refund handed to the gateway. The final payment
// state arrives later via webhook.
type RefundResponse struct {
	OrderCode string `json:"order_code"`
	RefundID  string `json:"refund_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// ============================================================================
// Converters
// ============================================================================

// ToItemResponse converts an order line to its response form
func ToItemResponse(item *order.Item) ItemResponse {
	return ItemResponse{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		ProductSlug: item.ProductSlug,
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
		Subtotal:    item.Subtotal,
	}
}

// ToHistoryResponse converts an audit-trail row to its response form
func ToHistoryResponse(h *order.StatusHistory) HistoryResponse {
	resp := HistoryResponse{
		ToStatus:  h.ToStatus.String(),
		Note:      h.Note,
		CreatedAt: h.CreatedAt,
	}
	if h.FromStatus != nil {
		from := h.FromStatus.String()
		resp.FromStatus = &from
	}
	return resp
}

// ToOrderView builds the sanitized customer projection
func ToOrderView(o *order.Order) *OrderView {
	view := &OrderView{
		Code:            o.Code,
		Type:            o.Type.String(),
		Status:          o.Status.String(),
		PaymentStatus:   o.PaymentStatus.String(),
		PaymentMethod:   o.PaymentMethod.String(),
		CustomerName:    o.Contact.Name,
		ShippingAddress: o.ShippingAddress,
		SubtotalAmount:  o.SubtotalAmount,
		ShippingFee:     o.ShippingFee,
		TotalAmount:     o.TotalAmount,
		DepositAmount:   o.DepositAmount,
		RemainingAmount: o.RemainingAmount,
		DepositDueAt:    o.DepositDueAt,
		Items:           make([]ItemResponse, 0, len(o.Items)),
		History:         make([]HistoryResponse, 0, len(o.History)),
		CreatedAt:       o.CreatedAt,
	}
	for i := range o.Items {
		view.Items = append(view.Items, ToItemResponse(&o.Items[i]))
	}
	for i := range o.History {
		view.History = append(view.History, ToHistoryResponse(&o.History[i]))
	}
	return view
}

// ToOrderResponse builds the full admin projection
func ToOrderResponse(o *order.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:                    o.ID,
		Code:                  o.Code,
		Type:                  o.Type.String(),
		Status:                o.Status.String(),
		PaymentStatus:         o.PaymentStatus.String(),
		PaymentMethod:         o.PaymentMethod.String(),
		CustomerName:          o.Contact.Name,
		CustomerEmail:         o.Contact.Email,
		CustomerPhone:         o.Contact.Phone,
		ShippingAddress:       o.ShippingAddress,
		UserID:                o.UserID,
		SubtotalAmount:        o.SubtotalAmount,
		ShippingFee:           o.ShippingFee,
		TaxAmount:             o.TaxAmount,
		DiscountAmount:        o.DiscountAmount,
		TotalAmount:           o.TotalAmount,
		DepositAmount:         o.DepositAmount,
		RemainingAmount:       o.RemainingAmount,
		DepositDueAt:          o.DepositDueAt,
		DepositReceivedAt:     o.DepositReceivedAt,
		RefundedAmount:        o.RefundedAmount,
		PendingRefundAmount:   o.PendingRefundAmount,
		RefundableAmount:      o.RefundableAmount(),
		StripeSessionID:       o.StripeSessionID,
		StripePaymentIntentID: o.StripePaymentIntentID,
		CancelReason:          o.CancelReason,
		Items:                 make([]ItemResponse, 0, len(o.Items)),
		History:               make([]HistoryResponse, 0, len(o.History)),
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	for i := range o.Items {
		resp.Items = append(resp.Items, ToItemResponse(&o.Items[i]))
	}
	for i := range o.History {
		resp.History = append(resp.History, ToHistoryResponse(&o.History[i]))
	}
	return resp
}

// ToProofResponse converts a transfer proof; image URLs are filled in by the
// service when a storage backend is available.
func ToProofResponse(p *order.TransferProof) *ProofResponse {
	resp := &ProofResponse{
		ID:           p.ID,
		OrderID:      p.OrderID,
		Status:       p.Status.String(),
		Note:         p.Note,
		ReviewerNote: p.ReviewerNote,
		Images:       make([]ProofImageResponse, 0, len(p.Images)),
		SubmittedAt:  p.SubmittedAt,
		ReviewedAt:   p.ReviewedAt,
	}
	for i := range p.Images {
		resp.Images = append(resp.Images, ProofImageResponse{
			Position:    p.Images[i].Position,
			ContentType: p.Images[i].ContentType,
			SizeBytes:   p.Images[i].SizeBytes,
		})
	}
	return resp
}
