package order

import "time"

// OrderUpdatedEvent carries the full order after any committed change.
type OrderUpdatedEvent struct {
	Order      *Order
	OccurredAt time.Time
}

func (OrderUpdatedEvent) EventName() string { return "order.updated" }

func NewOrderUpdatedEvent(o *Order) OrderUpdatedEvent {
	return OrderUpdatedEvent{
		Order:      o.Clone(),
		OccurredAt: time.Now().UTC(),
	}
}

// InvoiceRequestedEvent asks the mailer to send an invoice for a settled or cash order.
type InvoiceRequestedEvent struct {
	Order      *Order
	Recipient  string
	OccurredAt time.Time
}

func (InvoiceRequestedEvent) EventName() string { return "order.invoice_requested" }

func NewInvoiceRequestedEvent(o *Order) InvoiceRequestedEvent {
	recipient := o.ContactEmail
	if recipient == "" && o.Guest != nil {
		recipient = o.Guest.Email
	}
	return InvoiceRequestedEvent{
		Order:      o.Clone(),
		Recipient:  recipient,
		OccurredAt: time.Now().UTC(),
	}
}
