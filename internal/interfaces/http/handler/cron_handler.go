package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	orderapp "github.com/valveaudio/backend/internal/application/order"
)

// CronHandler exposes the scheduled jobs to an external trigger. Routes are
// registered behind the cron bearer-secret middleware.
type CronHandler struct {
	BaseHandler
	expiry *orderapp.ExpiryService

	cronAuth gin.HandlerFunc
}

// NewCronHandler creates a new CronHandler
func NewCronHandler(expiry *orderapp.ExpiryService, cronAuth gin.HandlerFunc) *CronHandler {
	return &CronHandler{expiry: expiry, cronAuth: cronAuth}
}

// RegisterRoutes registers cron trigger routes
func (h *CronHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cron := rg.Group("/cron")
	cron.Use(h.cronAuth)
	cron.POST("/expire-deposits", h.ExpireDeposits)
}

// ExpireDeposits runs the deposit-deadline sweep once. Safe to invoke
// repeatedly or concurrently with the in-process scheduler.
func (h *CronHandler) ExpireDeposits(c *gin.Context) {
	stats, err := h.expiry.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
