package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type fakeSink struct {
	mu     sync.Mutex
	orders []string
	stock  []variant.StockChangedEvent
	err    error
}

func (s *fakeSink) PublishOrderUpdate(_ context.Context, o *domorder.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o.ID)
	return s.err
}

func (s *fakeSink) PublishStockUpdate(_ context.Context, evt variant.StockChangedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock = append(s.stock, evt)
	return s.err
}

type fakeMailer struct {
	recipients []string
	panics     bool
}

func (m *fakeMailer) SendInvoice(_ context.Context, recipient string, _ *domorder.Order) error {
	if m.panics {
		panic("smtp exploded")
	}
	m.recipients = append(m.recipients, recipient)
	return nil
}

func sampleOrder() *domorder.Order {
	return &domorder.Order{ID: "o1", ContactEmail: "buyer@example.com", Total: decimal.NewFromInt(115)}
}

func TestWorkerForwardsEvents(t *testing.T) {
	sink, mail := &fakeSink{}, &fakeMailer{}
	h := NewWorker(sink, mail, observability.Nop()).Handlers()
	ctx := context.Background()

	o := sampleOrder()
	require.NoError(t, h["order.updated"](ctx, domorder.NewOrderUpdatedEvent(o)))
	require.NoError(t, h["order.invoice_requested"](ctx, domorder.NewInvoiceRequestedEvent(o)))
	require.NoError(t, h["variant.stock_changed"](ctx, variant.NewVariantDeletedEvent("v1")))

	assert.Equal(t, []string{"o1"}, sink.orders)
	assert.Equal(t, []string{"buyer@example.com"}, mail.recipients)
	require.Len(t, sink.stock, 1)
	assert.True(t, sink.stock[0].Deleted)
}

func TestWorkerSkipsInvoiceWithoutRecipient(t *testing.T) {
	mail := &fakeMailer{}
	h := NewWorker(nil, mail, nil).Handlers()

	o := sampleOrder()
	o.ContactEmail = ""
	require.NoError(t, h["order.invoice_requested"](context.Background(), domorder.NewInvoiceRequestedEvent(o)))
	assert.Empty(t, mail.recipients)

	require.NoError(t, h["order.updated"](context.Background(), domorder.NewOrderUpdatedEvent(o)))
}

func TestWorkerReportsDeliveryFailures(t *testing.T) {
	sink := &fakeSink{err: errors.New("no listeners")}
	h := NewWorker(sink, &fakeMailer{panics: true}, observability.Nop()).Handlers()
	ctx := context.Background()

	err := h["order.updated"](ctx, domorder.NewOrderUpdatedEvent(sampleOrder()))
	assert.EqualError(t, err, "no listeners")

	err = h["order.invoice_requested"](ctx, domorder.NewInvoiceRequestedEvent(sampleOrder()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestWorkerIgnoresForeignEvents(t *testing.T) {
	sink := &fakeSink{}
	h := NewWorker(sink, nil, observability.Nop()).Handlers()

	require.NoError(t, h["order.updated"](context.Background(), variant.NewVariantDeletedEvent("v1")))
	assert.Empty(t, sink.orders)
}
