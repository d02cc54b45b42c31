package payment

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("payment: not found")
	ErrConflict               = errors.New("payment: already exists for order")
	ErrInvalidStateTransition = errors.New("payment: invalid state transition")
	ErrInvalidSignature       = errors.New("payment: invalid signature")
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusPaid     Status = "Paid"
	StatusFailed   Status = "Failed"
	StatusRefunded Status = "Refunded"
)

// Payment tracks settlement of exactly one order.
type Payment struct {
	ID               string
	OrderID          string
	Provider         string
	Amount           decimal.Decimal
	Currency         string
	Status           Status
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	RawPayload       json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func New(id, orderID, provider string, amount decimal.Decimal, currency string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		Provider:  provider,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AttachIntent records a new gateway order; a failed attempt is reopened on the same record.
func (p *Payment) AttachIntent(gatewayOrderID string, amount decimal.Decimal, currency string) error {
	switch p.Status {
	case StatusPending, StatusFailed:
	default:
		return ErrInvalidStateTransition
	}
	p.GatewayOrderID = gatewayOrderID
	p.GatewayPaymentID = ""
	p.Signature = ""
	p.Amount = amount
	p.Currency = currency
	p.Status = StatusPending
	p.touch()
	return nil
}

// MarkPaid settles the payment. A failed attempt may be followed by a successful one on the
// same gateway order; repeating it for the same gateway payment is a no-op.
func (p *Payment) MarkPaid(gatewayPaymentID, signature string) error {
	switch p.Status {
	case StatusPending, StatusFailed:
	case StatusPaid:
		if p.GatewayPaymentID == gatewayPaymentID {
			return nil
		}
		return ErrInvalidStateTransition
	default:
		return ErrInvalidStateTransition
	}
	p.GatewayPaymentID = gatewayPaymentID
	p.Signature = signature
	p.Status = StatusPaid
	p.touch()
	return nil
}

func (p *Payment) MarkFailed(raw json.RawMessage) error {
	switch p.Status {
	case StatusPending:
	case StatusFailed:
		if len(raw) > 0 {
			p.RawPayload = raw
			p.touch()
		}
		return nil
	default:
		return ErrInvalidStateTransition
	}
	p.Status = StatusFailed
	if len(raw) > 0 {
		p.RawPayload = raw
	}
	p.touch()
	return nil
}

func (p *Payment) MarkRefunded(raw json.RawMessage) error {
	if p.Status != StatusPaid {
		return ErrInvalidStateTransition
	}
	p.Status = StatusRefunded
	if len(raw) > 0 {
		p.RawPayload = raw
	}
	p.touch()
	return nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	clone.RawPayload = append(json.RawMessage(nil), p.RawPayload...)
	return &clone
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now().UTC()
}
