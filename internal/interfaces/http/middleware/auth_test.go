package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valveaudio/backend/internal/infrastructure/auth"
	"github.com/valveaudio/backend/internal/infrastructure/config"
)

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-test-secret-test-secret!",
		Expiration: time.Hour,
		Issuer:     "valveaudio-test",
	})
}

func authRouter(svc *auth.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(svc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionUsername(c))
	})
	r.GET("/protected", handlers...)
	return r
}

func TestAuth(t *testing.T) {
	svc := newJWTService()

	t.Run("valid token passes and exposes claims", func(t *testing.T) {
		token, _, err := svc.GenerateToken(uuid.New(), "hoa.le", RoleAdmin)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		authRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hoa.le", w.Body.String())
	})

	t.Run("missing header returns 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		authRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header returns 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		authRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with another secret returns 401", func(t *testing.T) {
		other := auth.NewJWTService(config.JWTConfig{
			Secret:     "completely-different-secret-value!!!",
			Expiration: time.Hour,
			Issuer:     "valveaudio-test",
		})
		token, _, err := other.GenerateToken(uuid.New(), "hoa.le", RoleAdmin)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		authRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	svc := newJWTService()

	t.Run("admin role passes", func(t *testing.T) {
		token, _, err := svc.GenerateToken(uuid.New(), "hoa.le", RoleAdmin)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		authRouter(svc, RequireAdmin()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("customer role is rejected with 403", func(t *testing.T) {
		token, _, err := svc.GenerateToken(uuid.New(), "duc.tran", "customer")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		authRouter(svc, RequireAdmin()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCronAuth(t *testing.T) {
	newRouter := func(secret string) *gin.Engine {
		r := gin.New()
		r.POST("/cron/expire-deposits", CronAuth(secret), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	t.Run("correct secret passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cron/expire-deposits", nil)
		req.Header.Set("Authorization", "Bearer sweep-secret")
		newRouter("sweep-secret").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong secret returns 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cron/expire-deposits", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		newRouter("sweep-secret").ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing header returns 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cron/expire-deposits", nil)
		newRouter("sweep-secret").ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty configured secret disables the endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cron/expire-deposits", nil)
		req.Header.Set("Authorization", "Bearer anything")
		newRouter("").ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
