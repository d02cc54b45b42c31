package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const (
	paymentService        = "payment-service"
	useCaseCreateIntent   = "payment.create_intent"
	useCaseVerify         = "payment.verify"
	useCaseMarkFailed     = "payment.mark_failed"
	useCaseWebhook        = "payment.webhook"
	useCaseRefund         = "payment.refund"
	gatewayEndpointOrder  = "orders.create"
	gatewayEndpointRefund = "payments.refund"
)

type Options struct {
	// KeyID is the public gateway key handed to the client checkout widget.
	KeyID string
	// RequireWebhookSignature rejects webhooks whose signature does not verify.
	RequireWebhookSignature bool
}

type UseCases struct {
	store     application.Store
	gateway   domain.Gateway
	publisher domoutbox.Publisher
	opts      Options
	inst      *application.Instrument
}

func NewUseCases(
	store application.Store,
	gateway domain.Gateway,
	publisher domoutbox.Publisher,
	opts Options,
	tel observability.Observability,
) *UseCases {
	return &UseCases{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		inst:      application.NewInstrument(tel, paymentService),
	}
}

type IntentResult struct {
	KeyID          string
	GatewayOrderID string
	Amount         int64
	Currency       string
	Receipt        string
	Order          *domorder.Order
}

// MinorUnits converts a decimal amount to the gateway's smallest currency unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateIntent opens a gateway order for an unpaid gateway order and stores the correlation
// on both the payment and the order.
func (uc *UseCases) CreateIntent(ctx context.Context, actor *auth.Identity, orderID string) (_ *IntentResult, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseCreateIntent, "CreatePaymentIntent",
		attribute.String("order.id", orderID),
	)
	defer func() { call.End(err) }()
	call.Field("order_id", orderID)

	if strings.TrimSpace(orderID) == "" {
		call.Fail("ORDER_ID_REQUIRED")
		return nil, apperr.Validation("order id is required", "orderId")
	}
	repos := uc.store.Repositories()
	o, gerr := repos.Orders.Get(ctx, orderID)
	if gerr != nil {
		call.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(gerr)
	}
	if !canPay(actor, o) {
		call.Fail("ORDER_NOT_VISIBLE")
		return nil, apperr.NotFound("order not found", domorder.ErrNotFound)
	}
	if !o.PaymentMethod.IsGateway() {
		call.Fail("NOT_GATEWAY_ORDER")
		return nil, apperr.Validation("order is not paid through the gateway", "orderId")
	}
	if o.PaymentStatus == domorder.PaymentPaid || o.PaymentStatus == domorder.PaymentRefunded {
		call.Fail("ALREADY_PAID")
		return nil, apperr.Conflict("order is already paid", domain.ErrInvalidStateTransition)
	}
	if o.Status == domorder.StatusCancelled {
		call.Fail("ORDER_CANCELLED")
		return nil, apperr.Conflict("order is cancelled", domorder.ErrInvalidStateTransition)
	}

	p, gerr := repos.Payments.GetByOrderID(ctx, o.ID)
	if gerr != nil {
		call.Fail("PAYMENT_LOAD_FAILED")
		return nil, wrapRepositoryError(gerr)
	}

	amount := MinorUnits(o.Total)
	receipt := "order_" + o.ID
	start := time.Now()
	gwOrder, gwErr := uc.gateway.CreateOrder(ctx, amount, p.Currency, receipt)
	uc.inst.External(uc.gateway.Provider(), gatewayEndpointOrder, start, gwErr)
	if gwErr != nil {
		call.Fail("GATEWAY_CREATE_FAILED")
		return nil, apperr.Gateway("payment gateway unavailable", gwErr)
	}

	var updated *domorder.Order
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Payments.GetByOrderID(ctx, o.ID)
		if err != nil {
			call.Fail("PAYMENT_LOAD_FAILED")
			return wrapRepositoryError(err)
		}
		if err := p.AttachIntent(gwOrder.ID, o.Total, p.Currency); err != nil {
			call.Fail("PAYMENT_STATE_INVALID")
			return apperr.Conflict("payment cannot be reopened", err)
		}
		if err := repos.Payments.Update(ctx, p); err != nil {
			call.Fail("PAYMENT_UPDATE_FAILED")
			return wrapRepositoryError(err)
		}
		current, err := repos.Orders.Get(ctx, o.ID)
		if err != nil {
			call.Fail("ORDER_LOAD_FAILED")
			return wrapRepositoryError(err)
		}
		if err := current.ReopenPayment(); err != nil {
			call.Fail("ORDER_STATE_INVALID")
			return apperr.Conflict("order payment cannot be reopened", err)
		}
		current.AttachGatewayOrder(gwOrder.ID)
		if err := repos.Orders.Update(ctx, current); err != nil {
			call.Fail("ORDER_UPDATE_FAILED")
			return wrapRepositoryError(err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	call.Field("gateway_order_id", gwOrder.ID)

	return &IntentResult{
		KeyID:          uc.opts.KeyID,
		GatewayOrderID: gwOrder.ID,
		Amount:         amount,
		Currency:       p.Currency,
		Receipt:        receipt,
		Order:          updated,
	}, nil
}

type VerifyInput struct {
	Actor            *auth.Identity
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Verify checks the checkout signature and settles the payment and its order.
func (uc *UseCases) Verify(ctx context.Context, cmd VerifyInput) (_ *domorder.Order, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseVerify, "VerifyPayment",
		attribute.String("payment.gateway_order_id", cmd.GatewayOrderID),
	)
	defer func() { call.End(err) }()

	var missing []string
	if cmd.GatewayOrderID == "" {
		missing = append(missing, "razorpay_order_id")
	}
	if cmd.GatewayPaymentID == "" {
		missing = append(missing, "razorpay_payment_id")
	}
	if cmd.Signature == "" {
		missing = append(missing, "razorpay_signature")
	}
	if len(missing) > 0 {
		call.Fail("VALIDATION_FAILED")
		return nil, apperr.Validation("payment verification fields are required", missing...)
	}
	if !uc.gateway.VerifyPaymentSignature(cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature) {
		call.Fail("SIGNATURE_INVALID")
		return nil, apperr.Wrap(apperr.KindValidation, "payment signature mismatch", domain.ErrInvalidSignature)
	}

	o, settled, serr := uc.settle(ctx, cmd.Actor, cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature, nil)
	if serr != nil {
		call.Fail("SETTLE_FAILED")
		return nil, serr
	}
	call.Field("order_id", o.ID)
	if !settled {
		call.Status = "ALREADY_SETTLED"
	}
	return o, nil
}

// settle marks the payment and order paid. It reports false when the same gateway payment
// was already recorded, in which case no events are emitted again.
func (uc *UseCases) settle(ctx context.Context, actor *auth.Identity, gatewayOrderID, gatewayPaymentID, signature string, raw json.RawMessage) (*domorder.Order, bool, error) {
	var (
		updated *domorder.Order
		already bool
	)
	err := uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Payments.GetByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		o, err := repos.Orders.Get(ctx, p.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		if actor != nil && !canPay(actor, o) {
			return apperr.NotFound("order not found", domorder.ErrNotFound)
		}
		if p.Status == domain.StatusPaid && p.GatewayPaymentID == gatewayPaymentID {
			updated, already = o, true
			return nil
		}
		if err := p.MarkPaid(gatewayPaymentID, signature); err != nil {
			return apperr.Conflict("payment cannot be settled", err)
		}
		if len(raw) > 0 {
			p.RawPayload = raw
		}
		if err := repos.Payments.Update(ctx, p); err != nil {
			return wrapRepositoryError(err)
		}
		if err := o.MarkPaid(); err != nil {
			return apperr.Conflict("order cannot be marked paid", err)
		}
		if err := repos.Orders.Update(ctx, o); err != nil {
			return wrapRepositoryError(err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if already {
		return updated, false, nil
	}
	_ = uc.inst.Publish(ctx, uc.publisher,
		domorder.NewOrderUpdatedEvent(updated),
		domorder.NewInvoiceRequestedEvent(updated),
	)
	return updated, true, nil
}

type FailInput struct {
	Actor            *auth.Identity
	GatewayOrderID   string
	GatewayPaymentID string
	Raw              json.RawMessage
}

// MarkFailed records a client-reported failed attempt. Only the signed-in owner of the order
// or an admin may report one; guest attempts are recorded from signed webhooks. Stock stays
// reserved so the buyer can retry.
func (uc *UseCases) MarkFailed(ctx context.Context, cmd FailInput) (_ *domorder.Order, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseMarkFailed, "MarkPaymentFailed",
		attribute.String("payment.gateway_order_id", cmd.GatewayOrderID),
	)
	defer func() { call.End(err) }()

	if cmd.Actor == nil || cmd.Actor.UserID == "" {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}
	if cmd.GatewayOrderID == "" {
		call.Fail("VALIDATION_FAILED")
		return nil, apperr.Validation("gateway order id is required", "razorpay_order_id")
	}
	o, ferr := uc.fail(ctx, cmd)
	if ferr != nil {
		call.Fail("MARK_FAILED_FAILED")
		return nil, ferr
	}
	call.Field("order_id", o.ID)
	return o, nil
}

func (uc *UseCases) fail(ctx context.Context, cmd FailInput) (*domorder.Order, error) {
	var updated *domorder.Order
	err := uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Payments.GetByGatewayOrderID(ctx, cmd.GatewayOrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		o, err := repos.Orders.Get(ctx, p.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		if cmd.Actor != nil && !canReportFailure(cmd.Actor, o) {
			return apperr.NotFound("order not found", domorder.ErrNotFound)
		}
		if err := p.MarkFailed(cmd.Raw); err != nil {
			return apperr.Conflict("payment cannot be marked failed", err)
		}
		if cmd.GatewayPaymentID != "" {
			p.GatewayPaymentID = cmd.GatewayPaymentID
		}
		if err := repos.Payments.Update(ctx, p); err != nil {
			return wrapRepositoryError(err)
		}
		if err := o.MarkPaymentFailed(); err != nil {
			return apperr.Conflict("order payment cannot be marked failed", err)
		}
		if err := repos.Orders.Update(ctx, o); err != nil {
			return wrapRepositoryError(err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = uc.inst.Publish(ctx, uc.publisher, domorder.NewOrderUpdatedEvent(updated))
	return updated, nil
}

type WebhookResult struct {
	Event   string
	Handled bool
}

// HandleWebhook applies gateway callbacks. Only callbacks whose signature verifies change
// payment state; unsigned ones, events it does not act on and callbacks for unknown gateway
// orders are acknowledged with Handled false so the provider stops redelivering them.
func (uc *UseCases) HandleWebhook(ctx context.Context, body []byte, signature string) (_ *WebhookResult, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseWebhook, "HandlePaymentWebhook")
	defer func() { call.End(err) }()

	signed := uc.gateway.VerifyWebhookSignature(body, signature)
	if uc.opts.RequireWebhookSignature && !signed {
		call.Fail("SIGNATURE_INVALID")
		return nil, apperr.Wrap(apperr.KindValidation, "webhook signature mismatch", domain.ErrInvalidSignature)
	}
	evt, perr := uc.gateway.ParseWebhook(body)
	if perr != nil {
		call.Fail("PAYLOAD_INVALID")
		return nil, apperr.Wrap(apperr.KindValidation, "webhook payload", perr)
	}
	call.Field("event", evt.Type)
	call.Field("gateway_order_id", evt.GatewayOrderID)
	res := &WebhookResult{Event: evt.Type}

	if evt.Type != domain.WebhookPaymentFailed && evt.Type != domain.WebhookPaymentCaptured {
		call.Status = "IGNORED"
		return res, nil
	}
	if !signed {
		call.Status = "UNSIGNED_IGNORED"
		return res, nil
	}

	var herr error
	if evt.Type == domain.WebhookPaymentFailed {
		_, herr = uc.fail(ctx, FailInput{
			GatewayOrderID:   evt.GatewayOrderID,
			GatewayPaymentID: evt.GatewayPaymentID,
			Raw:              evt.Raw,
		})
	} else {
		_, _, herr = uc.settle(ctx, nil, evt.GatewayOrderID, evt.GatewayPaymentID, "", evt.Raw)
	}
	switch {
	case herr == nil:
		res.Handled = true
	case apperr.KindOf(herr) == apperr.KindNotFound:
		call.Status = "UNKNOWN_ORDER"
	case apperr.KindOf(herr) == apperr.KindConflict:
		call.Status = "STALE_EVENT"
	default:
		call.Fail("APPLY_FAILED")
		return nil, herr
	}
	return res, nil
}

type RefundInput struct {
	Actor   *auth.Identity
	OrderID string
	// Amount nil refunds the full payment.
	Amount *decimal.Decimal
}

func (uc *UseCases) Refund(ctx context.Context, cmd RefundInput) (_ *domorder.Order, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseRefund, "RefundPayment",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { call.End(err) }()
	call.Field("order_id", cmd.OrderID)

	if !cmd.Actor.Can(auth.PermPaymentAdmin) {
		call.Fail("FORBIDDEN")
		return nil, apperr.Forbidden("admin role required")
	}
	repos := uc.store.Repositories()
	p, gerr := repos.Payments.GetByOrderID(ctx, cmd.OrderID)
	if gerr != nil {
		call.Fail("PAYMENT_LOAD_FAILED")
		return nil, wrapRepositoryError(gerr)
	}
	if p.Status != domain.StatusPaid || p.GatewayPaymentID == "" {
		call.Fail("NOT_REFUNDABLE")
		return nil, apperr.Conflict("only settled gateway payments can be refunded", domain.ErrInvalidStateTransition)
	}
	var amount *int64
	if cmd.Amount != nil {
		if !cmd.Amount.IsPositive() || cmd.Amount.GreaterThan(p.Amount) {
			call.Fail("AMOUNT_INVALID")
			return nil, apperr.Validation("refund amount must be positive and at most the paid amount", "amount")
		}
		minor := MinorUnits(*cmd.Amount)
		amount = &minor
	}

	start := time.Now()
	refund, gwErr := uc.gateway.Refund(ctx, p.GatewayPaymentID, amount)
	uc.inst.External(uc.gateway.Provider(), gatewayEndpointRefund, start, gwErr)
	if gwErr != nil {
		call.Fail("GATEWAY_REFUND_FAILED")
		return nil, apperr.Gateway("payment gateway refund failed", gwErr)
	}

	var updated *domorder.Order
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		p, err := repos.Payments.GetByOrderID(ctx, cmd.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		if err := p.MarkRefunded(refund.Raw); err != nil {
			return apperr.Conflict("payment cannot be refunded", err)
		}
		if err := repos.Payments.Update(ctx, p); err != nil {
			return wrapRepositoryError(err)
		}
		o, err := repos.Orders.Get(ctx, p.OrderID)
		if err != nil {
			return wrapRepositoryError(err)
		}
		if err := o.MarkRefunded(); err != nil {
			return apperr.Conflict("order cannot be refunded", err)
		}
		if err := repos.Orders.Update(ctx, o); err != nil {
			return wrapRepositoryError(err)
		}
		updated = o
		return nil
	})
	if err != nil {
		call.Fail("PERSIST_FAILED")
		return nil, err
	}
	call.Field("refund_id", refund.ID)
	_ = uc.inst.Publish(ctx, uc.publisher, domorder.NewOrderUpdatedEvent(updated))
	return updated, nil
}

// canPay allows the owner or an admin to act on a user order; guest orders are addressed by id.
func canPay(actor *auth.Identity, o *domorder.Order) bool {
	if o.IsGuest() {
		return true
	}
	if actor == nil {
		return false
	}
	return o.VisibleTo(actor.UserID) || actor.IsAdmin()
}

// canReportFailure is stricter than canPay: guest orders have no owner, so only an admin
// may report a failure for one from the client side.
func canReportFailure(actor *auth.Identity, o *domorder.Order) bool {
	return actor.IsAdmin() || o.VisibleTo(actor.UserID)
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domorder.ErrNotFound):
		return apperr.NotFound("payment not found", err)
	case errors.Is(err, domain.ErrConflict):
		return apperr.Conflict("payment already exists", err)
	default:
		return apperr.Internal("payment repository failure", err)
	}
}
