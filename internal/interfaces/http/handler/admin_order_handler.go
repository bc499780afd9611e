package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/valveaudio/backend/internal/application/order"
	"github.com/valveaudio/backend/internal/interfaces/http/dto"
)

// AdminOrderHandler handles back-office order management. Orders are
// addressed by their public code, matching what operators see in mails and
// the storefront.
type AdminOrderHandler struct {
	BaseHandler
	lifecycle *orderapp.LifecycleService
	refunds   *orderapp.RefundService
	proofs    *orderapp.ProofService

	adminAuth []gin.HandlerFunc
}

// NewAdminOrderHandler creates a new AdminOrderHandler
func NewAdminOrderHandler(
	lifecycle *orderapp.LifecycleService,
	refunds *orderapp.RefundService,
	proofs *orderapp.ProofService,
	adminAuth ...gin.HandlerFunc,
) *AdminOrderHandler {
	return &AdminOrderHandler{
		lifecycle: lifecycle,
		refunds:   refunds,
		proofs:    proofs,
		adminAuth: adminAuth,
	}
}

// RegisterRoutes registers admin order routes
func (h *AdminOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(h.adminAuth...)

	orders := admin.Group("/orders")
	orders.GET("", h.List)
	orders.GET("/:code", h.Get)
	orders.POST("/:code/confirm", h.Confirm)
	orders.POST("/:code/process", h.StartProcessing)
	orders.POST("/:code/ship", h.Ship)
	orders.POST("/:code/deliver", h.Deliver)
	orders.POST("/:code/cancel", h.Cancel)
	orders.POST("/:code/refund", h.Refund)
	orders.GET("/:code/proofs", h.ListProofs)

	admin.POST("/proofs/:id/review", h.ReviewProof)
}

// List returns a filtered, paginated order listing
func (h *AdminOrderHandler) List(c *gin.Context) {
	var req orderapp.OrderFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid filter parameters: "+err.Error())
		return
	}

	page, err := h.lifecycle.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one order with items, history, and gateway references
func (h *AdminOrderHandler) Get(c *gin.Context) {
	resp, ok := h.resolveOrder(c)
	if !ok {
		return
	}
	h.Success(c, resp)
}

// Confirm moves a pending order to confirmed
func (h *AdminOrderHandler) Confirm(c *gin.Context) {
	h.transition(c, h.lifecycle.Confirm)
}

// StartProcessing moves a confirmed order to processing
func (h *AdminOrderHandler) StartProcessing(c *gin.Context) {
	h.transition(c, h.lifecycle.StartProcessing)
}

// Ship marks an order shipped and mails the customer
func (h *AdminOrderHandler) Ship(c *gin.Context) {
	h.transition(c, h.lifecycle.Ship)
}

// Deliver marks a shipped order delivered
func (h *AdminOrderHandler) Deliver(c *gin.Context) {
	h.transition(c, h.lifecycle.Deliver)
}

type adminCancelRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Cancel cancels an order on the operator's behalf, restoring stock
func (h *AdminOrderHandler) Cancel(c *gin.Context) {
	resp, ok := h.resolveOrder(c)
	if !ok {
		return
	}
	var req adminCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Cancellation reason is required")
		return
	}
	adminID, err := getSessionUserID(c)
	if err != nil {
		h.Unauthorized(c, "Session required")
		return
	}

	updated, err := h.lifecycle.AdminCancel(c.Request.Context(), resp.ID, adminID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, updated)
}

// Refund hands a refund to the payment gateway. The amount is clamped to
// what remains refundable; the final payment state arrives via webhook.
func (h *AdminOrderHandler) Refund(c *gin.Context) {
	resp, ok := h.resolveOrder(c)
	if !ok {
		return
	}
	var req orderapp.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Refund reason is required")
		return
	}
	adminID, err := getSessionUserID(c)
	if err != nil {
		h.Unauthorized(c, "Session required")
		return
	}

	refund, err := h.refunds.Refund(c.Request.Context(), resp.ID, req, adminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, refund)
}

// ListProofs returns the transfer proofs submitted for an order, with
// short-lived image view URLs
func (h *AdminOrderHandler) ListProofs(c *gin.Context) {
	resp, ok := h.resolveOrder(c)
	if !ok {
		return
	}

	proofs, err := h.proofs.ListForOrder(c.Request.Context(), resp.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proofs)
}

// ReviewProof approves or rejects a pending transfer proof
func (h *AdminOrderHandler) ReviewProof(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Proof id is required")
		return
	}
	proofID, err := uuid.Parse(uri.ID)
	if err != nil {
		h.BadRequest(c, "Proof id is required")
		return
	}
	var req orderapp.ReviewProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid review payload")
		return
	}
	adminID, err := getSessionUserID(c)
	if err != nil {
		h.Unauthorized(c, "Session required")
		return
	}

	proof, err := h.proofs.Review(c.Request.Context(), proofID, req, adminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proof)
}

// resolveOrder binds the :code parameter and loads the order, writing the
// error response itself when either step fails
func (h *AdminOrderHandler) resolveOrder(c *gin.Context) (*orderapp.OrderResponse, bool) {
	var uri dto.CodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Order code is required")
		return nil, false
	}
	resp, err := h.lifecycle.GetByCode(c.Request.Context(), uri.Code)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return resp, true
}

// transition runs one of the simple admin status transitions
func (h *AdminOrderHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, orderID, adminID uuid.UUID) (*orderapp.OrderResponse, error),
) {
	resp, ok := h.resolveOrder(c)
	if !ok {
		return
	}
	adminID, err := getSessionUserID(c)
	if err != nil {
		h.Unauthorized(c, "Session required")
		return
	}

	updated, err := op(c.Request.Context(), resp.ID, adminID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, updated)
}
