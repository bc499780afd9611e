package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/valveaudio/backend/internal/interfaces/http/dto"
)

// CronAuth guards the external cron trigger endpoints with a shared bearer
// secret. An empty configured secret disables the endpoints entirely rather
// than leaving them open.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Cron endpoints are not enabled"))
			return
		}

		header := c.GetHeader("Authorization")
		const bearer = "Bearer "
		if !strings.HasPrefix(header, bearer) {
			abortUnauthorized(c, "Missing cron bearer token")
			return
		}

		presented := strings.TrimPrefix(header, bearer)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			abortUnauthorized(c, "Invalid cron bearer token")
			return
		}

		c.Next()
	}
}
