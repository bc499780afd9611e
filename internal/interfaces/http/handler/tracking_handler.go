package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/valveaudio/backend/internal/application/order"
	"github.com/valveaudio/backend/internal/interfaces/http/dto"
)

// TrackingHandler handles guest order tracking and the customer-side order
// actions authorized by a tracking token
type TrackingHandler struct {
	BaseHandler
	tracking  *orderapp.TrackingService
	lifecycle *orderapp.LifecycleService

	trackLimit  gin.HandlerFunc
	sessionAuth gin.HandlerFunc
}

// NewTrackingHandler creates a new TrackingHandler. trackLimit guards the
// contact-based lookup; sessionAuth protects the claim route.
func NewTrackingHandler(
	tracking *orderapp.TrackingService,
	lifecycle *orderapp.LifecycleService,
	trackLimit gin.HandlerFunc,
	sessionAuth gin.HandlerFunc,
) *TrackingHandler {
	return &TrackingHandler{
		tracking:    tracking,
		lifecycle:   lifecycle,
		trackLimit:  trackLimit,
		sessionAuth: sessionAuth,
	}
}

// RegisterRoutes registers guest order routes
func (h *TrackingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/order")
	orders.POST("/track", h.trackLimit, h.Track)
	orders.GET("/track-token", h.TrackWithToken)
	orders.POST("/cancel/:code", h.Cancel)
	orders.POST("/change-request/:code", h.RequestChange)
	orders.POST("/claim/:code", h.sessionAuth, h.Claim)
}

// Track looks an order up by code plus a matching email or phone. Rate
// limited; all failures share one response body.
func (h *TrackingHandler) Track(c *gin.Context) {
	var req orderapp.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Order code and contact are required")
		return
	}

	view, err := h.tracking.Lookup(c.Request.Context(), req.Code, req.Contact)
	if err != nil {
		h.HandleGuestError(c, err)
		return
	}

	h.Success(c, view)
}

// TrackWithToken looks an order up by code plus a live tracking token
func (h *TrackingHandler) TrackWithToken(c *gin.Context) {
	code := c.Query("code")
	token := c.Query("t")
	if code == "" || token == "" {
		h.BadRequest(c, "Query parameters code and t are required")
		return
	}

	view, err := h.tracking.LookupWithToken(c.Request.Context(), code, token)
	if err != nil {
		h.HandleGuestError(c, err)
		return
	}

	h.Success(c, view)
}

type cancelOrderRequest struct {
	Token  string `json:"token" binding:"required,max=100"`
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Cancel cancels an order on the customer's behalf. The reason is mandatory.
func (h *TrackingHandler) Cancel(c *gin.Context) {
	var uri dto.CodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Order code is required")
		return
	}
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Token and cancellation reason are required")
		return
	}

	view, err := h.lifecycle.Cancel(c.Request.Context(), uri.Code, req.Token, req.Reason)
	if err != nil {
		h.HandleGuestError(c, err)
		return
	}

	h.Success(c, view)
}

type changeRequestPayload struct {
	Token    string `json:"token" binding:"required,max=100"`
	Category string `json:"category" binding:"required,oneof=address items payment other"`
	Message  string `json:"message" binding:"required,min=1,max=1000"`
}

// RequestChange records a customer change request without mutating the order
func (h *TrackingHandler) RequestChange(c *gin.Context) {
	var uri dto.CodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Order code is required")
		return
	}
	var req changeRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Token, category and message are required")
		return
	}

	err := h.lifecycle.RequestChange(c.Request.Context(), uri.Code, req.Token, orderapp.ChangeRequest{
		Category: req.Category,
		Message:  req.Message,
	})
	if err != nil {
		h.HandleGuestError(c, err)
		return
	}

	h.Success(c, gin.H{"recorded": true})
}

// Claim binds a guest order to the authenticated account after token or
// contact re-verification
func (h *TrackingHandler) Claim(c *gin.Context) {
	var uri dto.CodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Order code is required")
		return
	}
	var req orderapp.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid claim payload")
		return
	}

	userID, err := getSessionUserID(c)
	if err != nil {
		h.Unauthorized(c, "Session required")
		return
	}

	resp, err := h.lifecycle.Claim(c.Request.Context(), uri.Code, userID, req)
	if err != nil {
		h.HandleGuestError(c, err)
		return
	}

	h.Success(c, resp)
}
