package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type fakeGateway struct {
	mu        sync.Mutex
	created   int
	createErr error
	refunds   []*int64
	refundErr error
}

func (g *fakeGateway) Provider() string { return "fake" }

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*domain.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	return &domain.GatewayOrder{ID: fmt.Sprintf("gw_%d", g.created), Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(_, _, signature string) bool { return signature == "good" }

func (g *fakeGateway) VerifyWebhookSignature(_ []byte, signature string) bool { return signature == "good" }

func (g *fakeGateway) ParseWebhook(body []byte) (*domain.WebhookEvent, error) {
	var in struct {
		Event     string `json:"event"`
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return &domain.WebhookEvent{Type: in.Event, GatewayOrderID: in.OrderID, GatewayPaymentID: in.PaymentID, Raw: body}, nil
}

func (g *fakeGateway) Refund(_ context.Context, gatewayPaymentID string, amount *int64) (*domain.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, amount)
	return &domain.Refund{ID: "rfnd_1", PaymentID: gatewayPaymentID, Status: "processed", Raw: []byte(`{"id":"rfnd_1"}`)}, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	names []string
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, e.EventName())
	return nil
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = nil
}

var (
	owner  = &auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	other  = &auth.Identity{UserID: "u2", Role: auth.RoleCustomer}
	admin  = &auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	sample = []byte(`{}`)
)

type fixture struct {
	store   *memory.Store
	gateway *fakeGateway
	pub     *recordingPublisher
	uc      *UseCases
	place   *apporder.PlaceOrderUseCase
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedProducts(&product.Product{ID: "p1", Title: "Tee", Price: decimal.NewFromInt(100), Status: product.StatusActive})
	v, err := variant.New("v1", "p1", "M", "", "tee-m", decimal.NewFromInt(100), 10)
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Variants.Insert(context.Background(), v))

	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	return &fixture{
		store:   store,
		gateway: gw,
		pub:     pub,
		uc:      NewUseCases(store, gw, pub, opts, observability.Nop()),
		place:   apporder.NewPlaceOrderUseCase(store, id.NewUUIDGenerator(), nil, "INR", observability.Nop()),
	}
}

func (f *fixture) placeOrder(t *testing.T, buyer *auth.Identity, method string) *domorder.Order {
	t.Helper()
	fee, tax := decimal.NewFromInt(10), decimal.NewFromInt(5)
	in := apporder.PlaceOrderInput{
		Buyer:         buyer,
		Items:         []apporder.LineInput{{VariantID: "v1", Quantity: 1}},
		Address:       domorder.Address{Name: "Asha", Phone: "1", Line1: "x", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"},
		ShippingFee:   &fee,
		Tax:           &tax,
		PaymentMethod: method,
	}
	if buyer == nil {
		in.Guest = &domorder.GuestContact{Email: "guest@example.com"}
	}
	res, err := f.place.Execute(context.Background(), in)
	require.NoError(t, err)
	return res.Order
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	v, err := f.store.Repositories().Variants.Get(context.Background(), "v1")
	require.NoError(t, err)
	return v.Stock
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(11500), MinorUnits(decimal.NewFromInt(115)))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("9.995")))
}

func TestCreateIntent(t *testing.T) {
	f := newFixture(t, Options{KeyID: "rzp_test"})
	o := f.placeOrder(t, owner, "Razorpay")

	res, err := f.uc.CreateIntent(context.Background(), owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "rzp_test", res.KeyID)
	assert.Equal(t, "gw_1", res.GatewayOrderID)
	assert.Equal(t, int64(11500), res.Amount)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "order_"+o.ID, res.Receipt)
	assert.Equal(t, "gw_1", res.Order.GatewayOrderID)

	p, err := f.store.Repositories().Payments.GetByOrderID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "gw_1", p.GatewayOrderID)

	_, err = f.uc.CreateIntent(context.Background(), other, o.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = f.uc.CreateIntent(context.Background(), admin, o.ID)
	assert.NoError(t, err)
}

func TestCreateIntentRejections(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.uc.CreateIntent(ctx, owner, "")
	assert.Equal(t, []string{"orderId"}, apperr.FieldsOf(err))

	cod := f.placeOrder(t, nil, "COD")
	_, err = f.uc.CreateIntent(ctx, nil, cod.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	guest := f.placeOrder(t, nil, "Razorpay")
	f.gateway.createErr = errors.New("connection refused")
	_, err = f.uc.CreateIntent(ctx, nil, guest.ID)
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))

	f.gateway.createErr = nil
	res, err := f.uc.CreateIntent(ctx, nil, guest.ID)
	require.NoError(t, err)
	_, err = f.uc.Verify(ctx, VerifyInput{GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: "pay_1", Signature: "good"})
	require.NoError(t, err)
	_, err = f.uc.CreateIntent(ctx, nil, guest.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestVerifySettlesOnce(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o := f.placeOrder(t, owner, "Razorpay")
	intent, err := f.uc.CreateIntent(ctx, owner, o.ID)
	require.NoError(t, err)

	_, err = f.uc.Verify(ctx, VerifyInput{Actor: owner, GatewayOrderID: intent.GatewayOrderID})
	assert.ElementsMatch(t, []string{"razorpay_payment_id", "razorpay_signature"}, apperr.FieldsOf(err))

	_, err = f.uc.Verify(ctx, VerifyInput{Actor: owner, GatewayOrderID: intent.GatewayOrderID, GatewayPaymentID: "pay_1", Signature: "forged"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	paid, err := f.uc.Verify(ctx, VerifyInput{Actor: owner, GatewayOrderID: intent.GatewayOrderID, GatewayPaymentID: "pay_1", Signature: "good"})
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, paid.Status)
	assert.Equal(t, domorder.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, []string{"order.updated", "order.invoice_requested"}, f.pub.names)

	f.pub.reset()
	again, err := f.uc.Verify(ctx, VerifyInput{Actor: owner, GatewayOrderID: intent.GatewayOrderID, GatewayPaymentID: "pay_1", Signature: "good"})
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, again.Status)
	assert.Empty(t, f.pub.names)

	p, err := f.store.Repositories().Payments.GetByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, p.Status)
	assert.Equal(t, "pay_1", p.GatewayPaymentID)
}

func TestMarkFailedKeepsStockAndAllowsRetry(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o := f.placeOrder(t, owner, "Razorpay")
	require.Equal(t, 9, f.stock(t))
	intent, err := f.uc.CreateIntent(ctx, owner, o.ID)
	require.NoError(t, err)

	failed, err := f.uc.MarkFailed(ctx, FailInput{Actor: owner, GatewayOrderID: intent.GatewayOrderID, GatewayPaymentID: "pay_x", Raw: json.RawMessage(`{"code":"BAD_REQUEST_ERROR"}`)})
	require.NoError(t, err)
	assert.Equal(t, domorder.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, domorder.StatusCreated, failed.Status)
	assert.Equal(t, 9, f.stock(t))

	retry, err := f.uc.CreateIntent(ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.PaymentPending, retry.Order.PaymentStatus)
	paid, err := f.uc.Verify(ctx, VerifyInput{Actor: owner, GatewayOrderID: retry.GatewayOrderID, GatewayPaymentID: "pay_2", Signature: "good"})
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, paid.Status)

	_, err = f.uc.MarkFailed(ctx, FailInput{Actor: owner})
	assert.Equal(t, []string{"razorpay_order_id"}, apperr.FieldsOf(err))
	_, err = f.uc.MarkFailed(ctx, FailInput{Actor: owner, GatewayOrderID: "gw_missing"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMarkFailedRequiresOwnerOrAdmin(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	mine := f.placeOrder(t, owner, "Razorpay")
	mineIntent, err := f.uc.CreateIntent(ctx, owner, mine.ID)
	require.NoError(t, err)
	guest := f.placeOrder(t, nil, "Razorpay")
	guestIntent, err := f.uc.CreateIntent(ctx, nil, guest.ID)
	require.NoError(t, err)

	_, err = f.uc.MarkFailed(ctx, FailInput{GatewayOrderID: guestIntent.GatewayOrderID})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = f.uc.MarkFailed(ctx, FailInput{Actor: other, GatewayOrderID: mineIntent.GatewayOrderID})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = f.uc.MarkFailed(ctx, FailInput{Actor: other, GatewayOrderID: guestIntent.GatewayOrderID})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	for _, id := range []string{mine.ID, guest.ID} {
		got, err := f.store.Repositories().Orders.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domorder.PaymentPending, got.PaymentStatus)
	}

	failed, err := f.uc.MarkFailed(ctx, FailInput{Actor: admin, GatewayOrderID: guestIntent.GatewayOrderID})
	require.NoError(t, err)
	assert.Equal(t, domorder.PaymentFailed, failed.PaymentStatus)
}

func TestWebhookSignatureRequiredWhenConfigured(t *testing.T) {
	f := newFixture(t, Options{RequireWebhookSignature: true})

	_, err := f.uc.HandleWebhook(context.Background(), sample, "bad")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	res, err := f.uc.HandleWebhook(context.Background(), []byte(`{"event":"refund.created"}`), "good")
	require.NoError(t, err)
	assert.Equal(t, "refund.created", res.Event)
	assert.False(t, res.Handled)

	_, err = f.uc.HandleWebhook(context.Background(), []byte(`not json`), "good")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestWebhookCapturedAndFailed(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o := f.placeOrder(t, owner, "Razorpay")
	intent, err := f.uc.CreateIntent(ctx, owner, o.ID)
	require.NoError(t, err)

	body := func(event, paymentID string) []byte {
		return []byte(fmt.Sprintf(`{"event":%q,"order_id":%q,"payment_id":%q}`, event, intent.GatewayOrderID, paymentID))
	}

	res, err := f.uc.HandleWebhook(ctx, body(domain.WebhookPaymentFailed, "pay_1"), "good")
	require.NoError(t, err)
	assert.True(t, res.Handled)
	got, err := f.store.Repositories().Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.PaymentFailed, got.PaymentStatus)

	f.pub.reset()
	res, err = f.uc.HandleWebhook(ctx, body(domain.WebhookPaymentCaptured, "pay_2"), "good")
	require.NoError(t, err)
	assert.True(t, res.Handled)
	got, err = f.store.Repositories().Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, got.Status)
	assert.Equal(t, domorder.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, []string{"order.updated", "order.invoice_requested"}, f.pub.names)

	res, err = f.uc.HandleWebhook(ctx, body(domain.WebhookPaymentFailed, "pay_3"), "good")
	require.NoError(t, err)
	assert.False(t, res.Handled)

	res, err = f.uc.HandleWebhook(ctx, []byte(`{"event":"payment.captured","order_id":"gw_unknown","payment_id":"pay_9"}`), "good")
	require.NoError(t, err)
	assert.False(t, res.Handled)
}

func TestUnsignedWebhookNeverChangesPayment(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o := f.placeOrder(t, nil, "Razorpay")
	intent, err := f.uc.CreateIntent(ctx, nil, o.ID)
	require.NoError(t, err)
	f.pub.reset()

	for _, event := range []string{domain.WebhookPaymentCaptured, domain.WebhookPaymentFailed} {
		payload := []byte(fmt.Sprintf(`{"event":%q,"order_id":%q,"payment_id":"pay_forged"}`, event, intent.GatewayOrderID))
		for _, sig := range []string{"", "forged"} {
			res, err := f.uc.HandleWebhook(ctx, payload, sig)
			require.NoError(t, err)
			assert.Equal(t, event, res.Event)
			assert.False(t, res.Handled)
		}
	}

	got, err := f.store.Repositories().Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCreated, got.Status)
	assert.Equal(t, domorder.PaymentPending, got.PaymentStatus)
	p, err := f.store.Repositories().Payments.GetByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Empty(t, p.GatewayPaymentID)
	assert.Empty(t, f.pub.names)
}

func TestRefund(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o := f.placeOrder(t, owner, "Razorpay")

	_, err := f.uc.Refund(ctx, RefundInput{Actor: owner, OrderID: o.ID})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.uc.Refund(ctx, RefundInput{Actor: admin, OrderID: o.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	intent, err := f.uc.CreateIntent(ctx, owner, o.ID)
	require.NoError(t, err)
	_, err = f.uc.Verify(ctx, VerifyInput{Actor: owner, GatewayOrderID: intent.GatewayOrderID, GatewayPaymentID: "pay_1", Signature: "good"})
	require.NoError(t, err)

	tooMuch := decimal.NewFromInt(500)
	_, err = f.uc.Refund(ctx, RefundInput{Actor: admin, OrderID: o.ID, Amount: &tooMuch})
	assert.Equal(t, []string{"amount"}, apperr.FieldsOf(err))

	f.gateway.refundErr = errors.New("timeout")
	_, err = f.uc.Refund(ctx, RefundInput{Actor: admin, OrderID: o.ID})
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
	f.gateway.refundErr = nil

	part := decimal.RequireFromString("50.5")
	refunded, err := f.uc.Refund(ctx, RefundInput{Actor: admin, OrderID: o.ID, Amount: &part})
	require.NoError(t, err)
	assert.Equal(t, domorder.PaymentRefunded, refunded.PaymentStatus)
	require.Len(t, f.gateway.refunds, 1)
	require.NotNil(t, f.gateway.refunds[0])
	assert.Equal(t, int64(5050), *f.gateway.refunds[0])

	p, err := f.store.Repositories().Payments.GetByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, p.Status)
}
