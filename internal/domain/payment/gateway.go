package payment

import "context"

// GatewayOrder is the provider-side payment intent.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookPaymentFailed   = "payment.failed"
)

// WebhookEvent is the provider-neutral view of a gateway callback.
type WebhookEvent struct {
	Type             string
	GatewayOrderID   string
	GatewayPaymentID string
	Raw              []byte
}

type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string
	Raw       []byte
}

// Gateway is the outbound port to the external payment provider.
type Gateway interface {
	Provider() string
	// CreateOrder opens an intent for amount in minor currency units.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	ParseWebhook(body []byte) (*WebhookEvent, error)
	// Refund refunds a captured payment; amount nil means the full amount.
	Refund(ctx context.Context, gatewayPaymentID string, amount *int64) (*Refund, error)
}
