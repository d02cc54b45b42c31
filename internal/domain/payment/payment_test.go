package payment

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentIsPending(t *testing.T) {
	p := New("pay1", "o1", "COD", decimal.NewFromInt(215), "INR")
	assert.Equal(t, StatusPending, p.Status)
	assert.True(t, decimal.NewFromInt(215).Equal(p.Amount))
}

func TestMarkPaidIsIdempotentPerGatewayPayment(t *testing.T) {
	p := New("pay1", "o1", "Razorpay", decimal.NewFromInt(100), "INR")
	require.NoError(t, p.AttachIntent("order_gw", decimal.NewFromInt(100), "INR"))

	require.NoError(t, p.MarkPaid("pay_gw_1", "sig"))
	assert.Equal(t, StatusPaid, p.Status)
	require.NoError(t, p.MarkPaid("pay_gw_1", "sig"))
	assert.ErrorIs(t, p.MarkPaid("pay_gw_2", "sig"), ErrInvalidStateTransition)
	assert.ErrorIs(t, p.AttachIntent("order_gw_2", decimal.NewFromInt(100), "INR"), ErrInvalidStateTransition)
}

func TestFailedAttemptCanBeRetried(t *testing.T) {
	p := New("pay1", "o1", "Razorpay", decimal.NewFromInt(100), "INR")
	require.NoError(t, p.AttachIntent("order_gw", decimal.NewFromInt(100), "INR"))

	raw := json.RawMessage(`{"code":"BAD_REQUEST_ERROR"}`)
	require.NoError(t, p.MarkFailed(raw))
	assert.Equal(t, StatusFailed, p.Status)
	require.NoError(t, p.MarkFailed(nil))
	assert.JSONEq(t, string(raw), string(p.RawPayload))

	require.NoError(t, p.AttachIntent("order_gw_2", decimal.NewFromInt(100), "INR"))
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "order_gw_2", p.GatewayOrderID)

	require.NoError(t, p.MarkFailed(nil))
	require.NoError(t, p.MarkPaid("pay_gw_3", "sig"))
	assert.Equal(t, StatusPaid, p.Status)
}

func TestRefundRequiresPaid(t *testing.T) {
	p := New("pay1", "o1", "Razorpay", decimal.NewFromInt(100), "INR")
	assert.ErrorIs(t, p.MarkRefunded(nil), ErrInvalidStateTransition)

	require.NoError(t, p.MarkPaid("pay_gw", "sig"))
	require.NoError(t, p.MarkRefunded(json.RawMessage(`{"id":"rfnd_1"}`)))
	assert.Equal(t, StatusRefunded, p.Status)
	assert.ErrorIs(t, p.MarkFailed(nil), ErrInvalidStateTransition)
}

func TestCloneCopiesPayload(t *testing.T) {
	p := New("pay1", "o1", "Razorpay", decimal.NewFromInt(100), "INR")
	require.NoError(t, p.MarkFailed(json.RawMessage(`{"a":1}`)))
	clone := p.Clone()
	clone.RawPayload[2] = 'b'
	assert.Equal(t, `{"a":1}`, string(p.RawPayload))
}
