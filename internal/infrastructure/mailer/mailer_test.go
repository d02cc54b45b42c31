package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func sampleOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New(order.NewOrderParams{
		ID:            "o-1",
		UserID:        "u-1",
		ContactEmail:  "buyer@example.com",
		Items:         []order.Item{{ProductID: "p", VariantID: "v", Quantity: 2, PriceSnapshot: decimal.NewFromInt(100)}},
		Address:       order.Address{Name: "A", Phone: "1", Line1: "L", City: "C", State: "S", PostalCode: "P", Country: "IN"},
		ShippingFee:   decimal.NewFromInt(10),
		Tax:           decimal.NewFromInt(5),
		PaymentMethod: order.MethodCOD,
	})
	require.NoError(t, err)
	return o
}

func TestRenderInvoiceShowsTotals(t *testing.T) {
	html, err := RenderInvoice(sampleOrder(t))
	require.NoError(t, err)
	assert.Contains(t, html, "o-1")
	assert.Contains(t, html, "Total: 215.00")
	assert.Contains(t, html, "200.00")
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{d: d, from: "shop@example.com"}

	require.NoError(t, s.SendInvoice(context.Background(), "buyer@example.com", sampleOrder(t)))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"buyer@example.com"}, d.sent[0].GetHeader("To"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: Your invoice for order o-1")
}

func TestSMTPSenderWrapsDialError(t *testing.T) {
	s := &SMTPSender{d: &fakeDialer{err: errors.New("refused")}, from: "shop@example.com"}
	err := s.SendInvoice(context.Background(), "buyer@example.com", sampleOrder(t))
	assert.ErrorContains(t, err, "refused")
}
