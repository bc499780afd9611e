package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/valveaudio/backend/internal/application/order"
)

// CheckoutHandler handles storefront checkout submissions
type CheckoutHandler struct {
	BaseHandler
	checkout *orderapp.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout *orderapp.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// RegisterRoutes registers checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout", h.Checkout)
}

// Checkout creates an order from a cart submission. For card payments the
// response carries the Stripe checkout URL; the tracking token is returned
// exactly once.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req orderapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid checkout payload: "+err.Error())
		return
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}
