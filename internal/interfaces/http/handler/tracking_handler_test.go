package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderapp "github.com/valveaudio/backend/internal/application/order"
	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/auth"
	"github.com/valveaudio/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeOrderRepo serves a fixed set of orders by code and id. Writes are
// accepted and discarded; the tracking routes never persist.
type fakeOrderRepo struct {
	orders []*order.Order
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindByCode(_ context.Context, code string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.Code == code {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindByStripeSession(context.Context, string) (*order.Order, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindByPaymentIntent(context.Context, string) (*order.Order, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindAll(context.Context, shared.Filter) ([]order.Order, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) FindDepositOverdue(context.Context, time.Time) ([]order.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) Save(context.Context, *order.Order) error                  { return nil }
func (r *fakeOrderRepo) SaveWithLock(context.Context, *order.Order) error          { return nil }
func (r *fakeOrderRepo) AppendHistory(context.Context, *order.StatusHistory) error { return nil }

func (r *fakeOrderRepo) TransitionStatus(context.Context, uuid.UUID, order.Status, order.Status, *order.PaymentStatus, *order.StatusHistory) (bool, error) {
	return true, nil
}

func (r *fakeOrderRepo) GenerateCode(context.Context) (string, error) {
	return "VA-2026-99999", nil
}

func trackedOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder("VA-2026-00101", order.TypeStandard, order.PaymentMethodCard, order.Contact{
		Name:  "Tran Minh Duc",
		Email: "duc.tran@example.vn",
		Phone: "0901234567",
	}, "12 Hang Bac, Hoan Kiem, Ha Noi", 50000, 0, 0)
	require.NoError(t, err)
	_, err = o.AddItem(uuid.New(), "SE-300B Integrated Amplifier", "se-300b-integrated", 45000000, 1)
	require.NoError(t, err)
	return o
}

type trackingFixture struct {
	router *gin.Engine
	tokens auth.TrackingTokenStore
	order  *order.Order
}

func newTrackingFixture(t *testing.T, limiter middleware.Limiter) *trackingFixture {
	t.Helper()

	o := trackedOrder(t)
	repo := &fakeOrderRepo{orders: []*order.Order{o}}
	tokens := auth.NewInMemoryTrackingTokenStore(7 * 24 * time.Hour)
	logger := zap.NewNop()

	tracking := orderapp.NewTrackingService(repo, tokens, logger)

	r := gin.New()
	h := NewTrackingHandler(tracking, nil, middleware.RateLimit(limiter), func(c *gin.Context) { c.Next() })
	h.RegisterRoutes(r.Group("/"))

	return &trackingFixture{router: r, tokens: tokens, order: o}
}

func postTrack(router *gin.Engine, code, contact string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"code": code, "contact": contact})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/order/track", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestTrackingHandler_Track(t *testing.T) {
	limiter := middleware.NewInMemoryLimiter(100, time.Minute)

	t.Run("matching contact returns the sanitized order", func(t *testing.T) {
		f := newTrackingFixture(t, limiter)

		w := postTrack(f.router, "VA-2026-00101", "Duc.Tran@Example.VN")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "VA-2026-00101")
		assert.Contains(t, w.Body.String(), "SE-300B Integrated Amplifier")
		assert.NotContains(t, w.Body.String(), "stripe")
	})

	t.Run("wrong contact and unknown code return identical bodies", func(t *testing.T) {
		f := newTrackingFixture(t, limiter)

		wrongContact := postTrack(f.router, "VA-2026-00101", "someone.else@example.vn")
		unknownCode := postTrack(f.router, "VA-2099-11111", "duc.tran@example.vn")

		assert.Equal(t, http.StatusNotFound, wrongContact.Code)
		assert.Equal(t, http.StatusNotFound, unknownCode.Code)
		assert.Equal(t, wrongContact.Body.Bytes(), unknownCode.Body.Bytes())
	})

	t.Run("missing fields return 400", func(t *testing.T) {
		f := newTrackingFixture(t, limiter)

		w := postTrack(f.router, "VA-2026-00101", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lookups beyond the limit return 429", func(t *testing.T) {
		f := newTrackingFixture(t, middleware.NewInMemoryLimiter(2, time.Minute))

		postTrack(f.router, "VA-2026-00101", "duc.tran@example.vn")
		postTrack(f.router, "VA-2026-00101", "duc.tran@example.vn")
		w := postTrack(f.router, "VA-2026-00101", "duc.tran@example.vn")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
	})
}

func TestTrackingHandler_TrackWithToken(t *testing.T) {
	limiter := middleware.NewInMemoryLimiter(100, time.Minute)

	t.Run("live token returns the order", func(t *testing.T) {
		f := newTrackingFixture(t, limiter)
		token, err := f.tokens.Issue(context.Background(), f.order.ID)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/order/track-token?code=VA-2026-00101&t="+token, nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "VA-2026-00101")
	})

	t.Run("garbage token returns the generic 404", func(t *testing.T) {
		f := newTrackingFixture(t, limiter)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/order/track-token?code=VA-2026-00101&t=not-a-token", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("missing parameters return 400", func(t *testing.T) {
		f := newTrackingFixture(t, limiter)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/order/track-token?code=VA-2026-00101", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
