package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/infrastructure/auth"
	"github.com/valveaudio/backend/internal/infrastructure/config"
	"github.com/valveaudio/backend/internal/interfaces/http/middleware"
)

// AuthHandler issues back-office sessions. The operator account is
// configured, not stored: username plus a bcrypt password hash.
type AuthHandler struct {
	BaseHandler
	jwtService *auth.JWTService
	adminCfg   config.AdminConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(jwtService *auth.JWTService, adminCfg config.AdminConfig) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, adminCfg: adminCfg}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin/auth/login", h.Login)
}

type loginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=200"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// Login verifies the operator credentials and returns a session token.
// Wrong username and wrong password are indistinguishable in the response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Username and password are required")
		return
	}

	if h.adminCfg.PasswordHash == "" ||
		req.Username != h.adminCfg.Username ||
		!auth.VerifyPassword(h.adminCfg.PasswordHash, req.Password) {
		h.Unauthorized(c, "Invalid credentials")
		return
	}

	// Stable id for the configured operator so audit rows stay attributable
	adminID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("valveaudio-admin:"+req.Username))

	token, expiresAt, err := h.jwtService.GenerateToken(adminID, req.Username, middleware.RoleAdmin)
	if err != nil {
		h.InternalError(c, "Failed to create session")
		return
	}

	h.Success(c, loginResponse{Token: token, ExpiresAt: expiresAt, Username: req.Username})
}
