package mailer

import (
	"bytes"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>Invoice for order {{.ID}}</h2>
<p>Status: {{.Status}} &middot; Payment: {{.PaymentMethod}} ({{.PaymentStatus}})</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Line total</th></tr>
{{range .Lines}}<tr><td>{{.VariantID}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.Price}}</td><td align="right">{{.Total}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Subtotal}}<br>Shipping: {{.ShippingFee}}<br>Tax: {{.Tax}}<br><strong>Total: {{.Total}}</strong></p>
<p>Ship to: {{.Address.Name}}, {{.Address.Line1}}{{if .Address.Line2}}, {{.Address.Line2}}{{end}}, {{.Address.City}}, {{.Address.State}} {{.Address.PostalCode}}, {{.Address.Country}}</p>
</body></html>`))

type invoiceLine struct {
	VariantID string
	Quantity  int
	Price     string
	Total     string
}

type invoiceView struct {
	ID            string
	Status        order.Status
	PaymentMethod order.PaymentMethod
	PaymentStatus order.PaymentStatus
	Lines         []invoiceLine
	Subtotal      string
	ShippingFee   string
	Tax           string
	Total         string
	Address       order.Address
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// RenderInvoice produces the HTML body of the invoice mail.
func RenderInvoice(o *order.Order) (string, error) {
	view := invoiceView{
		ID:            o.ID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Subtotal:      money(o.Subtotal),
		ShippingFee:   money(o.ShippingFee),
		Tax:           money(o.Tax),
		Total:         money(o.Total),
		Address:       o.Address,
	}
	for _, it := range o.Items {
		view.Lines = append(view.Lines, invoiceLine{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     money(it.PriceSnapshot),
			Total:     money(it.LineTotal()),
		})
	}
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
