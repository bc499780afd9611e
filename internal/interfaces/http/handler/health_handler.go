package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valveaudio/backend/internal/infrastructure/persistence"
)

// HealthHandler reports service liveness and readiness
type HealthHandler struct {
	BaseHandler
	db      *persistence.Database
	appName string
	env     string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *persistence.Database, appName, env string) *HealthHandler {
	return &HealthHandler{db: db, appName: appName, env: env}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health reports liveness without touching dependencies
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status": "ok",
		"app":    h.appName,
		"env":    h.env,
		"time":   time.Now().UTC(),
	})
}

// Ready reports readiness, verifying the database connection
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}
	h.Success(c, gin.H{"status": "ready"})
}
