package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	"go.uber.org/zap"
)

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

// testConfig returns a valid test configuration
func testConfig() *StripeConfig {
	return &StripeConfig{
		SecretKey:     "sk_test_123456789",
		WebhookSecret: "whsec_test_123456789",
		IsTestMode:    true,
		Currency:      "vnd",
		SuccessURL:    "https://valveaudio.vn/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://valveaudio.vn/checkout/cancel",
	}
}

// setupMockBackend sets up a mock Stripe backend for testing
func setupMockBackend(handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) func() {
	mock := &mockBackend{handler: handler}
	stripe.SetBackend(stripe.APIBackend, mock)
	return func() {
		stripe.SetBackend(stripe.APIBackend, nil)
	}
}

// ============================================================================
// NewStripeGateway Tests
// ============================================================================

func TestNewStripeGateway_Success(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, gateway)
}

func TestNewStripeGateway_InvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *StripeConfig
		expectedErr string
	}{
		{
			name: "missing secret key",
			config: &StripeConfig{
				IsTestMode: true,
				Currency:   "vnd",
			},
			expectedErr: "secret key is required",
		},
		{
			name: "test mode with live key",
			config: &StripeConfig{
				SecretKey:  "sk_live_123456789",
				IsTestMode: true,
				Currency:   "vnd",
			},
			expectedErr: "test mode enabled but secret key is not a test key",
		},
		{
			name: "live mode with test key",
			config: &StripeConfig{
				SecretKey:  "sk_test_123456789",
				IsTestMode: false,
				Currency:   "vnd",
			},
			expectedErr: "live mode enabled but secret key is not a live key",
		},
		{
			name: "missing currency",
			config: &StripeConfig{
				SecretKey:  "sk_test_123456789",
				IsTestMode: true,
			},
			expectedErr: "currency is required",
		},
		{
			name: "missing redirect URLs",
			config: &StripeConfig{
				SecretKey:  "sk_test_123456789",
				IsTestMode: true,
				Currency:   "vnd",
			},
			expectedErr: "success and cancel URLs are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway, err := NewStripeGateway(tt.config, zap.NewNop())

			assert.Error(t, err)
			assert.Nil(t, gateway)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

// ============================================================================
// CreateCheckoutSession Tests
// ============================================================================

func TestCreateCheckoutSession_Success(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/checkout/sessions" {
			return json.Marshal(&stripe.CheckoutSession{
				ID:  "cs_test_a1b2c3",
				URL: "https://checkout.stripe.com/c/pay/cs_test_a1b2c3",
				PaymentIntent: &stripe.PaymentIntent{
					ID: "pi_3Qx0000000000001",
				},
			})
		}
		return nil, assert.AnError
	})
	defer cleanup()

	out, err := gateway.CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		OrderID:       uuid.New(),
		OrderCode:     "VA-2026-00001",
		CustomerEmail: "duc.tran@example.com",
		Lines: []CheckoutLine{
			{Name: "300B Single-Ended Amplifier", UnitAmount: 45000000, Quantity: 1},
			{Name: "Shipping", UnitAmount: 50000, Quantity: 1},
		},
		ExpiresAt: time.Now().Add(time.Hour),
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_a1b2c3", out.SessionID)
	assert.Equal(t, "pi_3Qx0000000000001", out.PaymentIntentID)
	assert.Contains(t, out.URL, "checkout.stripe.com")
}

func TestCreateCheckoutSession_StripeError(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, &stripe.Error{
			Type: stripe.ErrorTypeInvalidRequest,
			Msg:  "Invalid currency",
		}
	})
	defer cleanup()

	out, err := gateway.CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		OrderID:   uuid.New(),
		OrderCode: "VA-2026-00002",
		Lines:     []CheckoutLine{{Name: "EL34 Integrated", UnitAmount: 28000000, Quantity: 1}},
	})

	assert.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "failed to create checkout session")
}

// ============================================================================
// CreateRefund Tests
// ============================================================================

func TestCreateRefund_Success(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/refunds" {
			return json.Marshal(&stripe.Refund{
				ID:     "re_test_123",
				Status: stripe.RefundStatusPending,
			})
		}
		return nil, assert.AnError
	})
	defer cleanup()

	out, err := gateway.CreateRefund(context.Background(), RefundInput{
		OrderID:         uuid.New(),
		PaymentIntentID: "pi_3Qx0000000000001",
		Amount:          10000000,
		Reason:          "Customer cancelled before shipment",
	})

	require.NoError(t, err)
	assert.Equal(t, "re_test_123", out.RefundID)
	assert.Equal(t, "pending", out.Status)
}

func TestCreateRefund_StripeError(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, &stripe.Error{
			Type: stripe.ErrorTypeInvalidRequest,
			Msg:  "Charge has already been fully refunded",
		}
	})
	defer cleanup()

	out, err := gateway.CreateRefund(context.Background(), RefundInput{
		OrderID:         uuid.New(),
		PaymentIntentID: "pi_3Qx0000000000001",
		Amount:          10000000,
	})

	assert.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "failed to create refund")
}

// ============================================================================
// VerifyEvent Tests
// ============================================================================

func TestVerifyEvent_InvalidSignature(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_test","type":"payment_intent.succeeded"}`)

	_, err = gateway.VerifyEvent(payload, "t=123,v1=deadbeef")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "signature verification failed")
}

func TestVerifyEvent_EmptySignature(t *testing.T) {
	gateway, err := NewStripeGateway(testConfig(), zap.NewNop())
	require.NoError(t, err)

	_, err = gateway.VerifyEvent([]byte(`{}`), "")
	assert.Error(t, err)
}
