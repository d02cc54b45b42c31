package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

func TestCreateOrderSendsMinorUnitsWithBasicAuth(t *testing.T) {
	var got orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(orderResponse{ID: "order_gw1", Amount: got.Amount, Currency: got.Currency, Receipt: got.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := New(Config{KeyID: "rzp_key", KeySecret: "secret", BaseURL: srv.URL})
	gw, err := c.CreateOrder(context.Background(), 21500, "INR", "order_o1")
	require.NoError(t, err)
	assert.Equal(t, "order_gw1", gw.ID)
	assert.Equal(t, int64(21500), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "order_o1", got.Receipt)
}

func TestAPIErrorIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	c := New(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})
	_, err := c.CreateOrder(context.Background(), 1, "INR", "r")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
}

func TestUnconfiguredClientRefusesCalls(t *testing.T) {
	_, err := New(Config{}).CreateOrder(context.Background(), 100, "INR", "r")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPaymentSignature(t *testing.T) {
	c := New(Config{KeyID: "k", KeySecret: "secret"})
	sig := Sign([]byte("order_1|pay_1"), "secret")

	assert.True(t, c.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", "deadbeef"))
}

func TestWebhookSignatureAndParse(t *testing.T) {
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","status":"failed"}}}}`)
	c := New(Config{WebhookSecret: "whsec"})

	assert.True(t, c.VerifyWebhookSignature(body, Sign(body, "whsec")))
	assert.False(t, c.VerifyWebhookSignature(body, Sign(body, "other")))

	evt, err := c.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, payment.WebhookPaymentFailed, evt.Type)
	assert.Equal(t, "order_9", evt.GatewayOrderID)
	assert.Equal(t, "pay_9", evt.GatewayPaymentID)
}

func TestRefundReturnsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_1/refund", r.URL.Path)
		var req refundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.Amount)
		_, _ = w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_1","amount":21500,"status":"processed"}`))
	}))
	defer srv.Close()

	c := New(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})
	ref, err := c.Refund(context.Background(), "pay_1", nil)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", ref.ID)
	assert.JSONEq(t, `{"id":"rfnd_1","payment_id":"pay_1","amount":21500,"status":"processed"}`, string(ref.Raw))
}
