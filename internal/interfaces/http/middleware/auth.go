package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/valveaudio/backend/internal/infrastructure/auth"
	"github.com/valveaudio/backend/internal/interfaces/http/dto"
)

// Session context keys
const (
	SessionUserIDKey   = "session_user_id"
	SessionUsernameKey = "session_username"
	SessionRoleKey     = "session_role"
)

// RoleAdmin marks back-office operator sessions
const RoleAdmin = "admin"

// Auth validates the Bearer session token and stores its claims in the
// request context
func Auth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(header, bearer) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		token := strings.TrimPrefix(header, bearer)
		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired session token")
			return
		}

		c.Set(SessionUserIDKey, claims.UserID)
		c.Set(SessionUsernameKey, claims.Username)
		c.Set(SessionRoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin rejects sessions without the admin role. Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(SessionRoleKey) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Admin access required"))
			return
		}
		c.Next()
	}
}

// GetSessionUserID returns the authenticated user id, or "" outside Auth
func GetSessionUserID(c *gin.Context) string {
	return c.GetString(SessionUserIDKey)
}

// GetSessionUsername returns the authenticated username, or "" outside Auth
func GetSessionUsername(c *gin.Context) string {
	return c.GetString(SessionUsernameKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message))
}
