// Package razorpay implements payment.Gateway against the Razorpay REST API.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

const (
	DefaultBaseURL = "https://api.razorpay.com/v1"
	providerName   = "Razorpay"
	maxErrorBody   = 4 << 10
)

var ErrNotConfigured = errors.New("razorpay: key id and secret are required")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("razorpay: unexpected status %d", e.StatusCode)
}

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

var _ payment.Gateway = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Provider() string { return providerName }

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*payment.GatewayOrder, error) {
	var out orderResponse
	if _, err := c.do(ctx, http.MethodPost, "/orders", orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("razorpay: order response without id")
	}
	return &payment.GatewayOrder{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Receipt:  out.Receipt,
		Status:   out.Status,
	}, nil
}

type refundRequest struct {
	Amount *int64 `json:"amount,omitempty"`
}

type refundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

func (c *Client) Refund(ctx context.Context, gatewayPaymentID string, amount *int64) (*payment.Refund, error) {
	if gatewayPaymentID == "" {
		return nil, errors.New("razorpay: payment id is required")
	}
	var out refundResponse
	raw, err := c.do(ctx, http.MethodPost, "/payments/"+gatewayPaymentID+"/refund", refundRequest{Amount: amount}, &out)
	if err != nil {
		return nil, err
	}
	return &payment.Refund{
		ID:        out.ID,
		PaymentID: out.PaymentID,
		Amount:    out.Amount,
		Status:    out.Status,
		Raw:       raw,
	}, nil
}

// VerifyPaymentSignature checks the checkout signature: hex(HMAC-SHA256(order_id|payment_id, key_secret)).
func (c *Client) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if c.keySecret == "" {
		return false
	}
	return verify([]byte(gatewayOrderID+"|"+gatewayPaymentID), c.keySecret, signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature: hex(HMAC-SHA256(body, webhook_secret)).
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" {
		return false
	}
	return verify(body, c.webhookSecret, signature)
}

// Sign computes the hex HMAC-SHA256 of payload; exported for tests and tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(payload []byte, secret, signature string) bool {
	want := Sign(payload, secret)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (c *Client) ParseWebhook(body []byte) (*payment.WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("razorpay: decode webhook: %w", err)
	}
	if env.Event == "" {
		return nil, errors.New("razorpay: webhook without event")
	}
	entity := env.Payload.Payment.Entity
	return &payment.WebhookEvent{
		Type:             env.Event,
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		Raw:              append([]byte(nil), body...),
	}, nil
}

type errorEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// do sends a JSON request with basic auth and decodes a 2xx body into out, returning the raw body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, ErrNotConfigured
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("razorpay: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: res.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Description = env.Error.Description
		}
		return nil, apiErr
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: read response: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("razorpay: decode response: %w", err)
		}
	}
	return raw, nil
}
