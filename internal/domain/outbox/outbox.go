// Package outbox holds the ports order, payment and inventory changes travel through after
// their transaction commits.
package outbox

import "context"

// Event is a committed change named like "order.updated" or "variant.stock_changed".
type Event interface {
	EventName() string
}

// Handler reacts to one event, for example pushing an order update to listeners or mailing
// an invoice. An error is logged by the bus; it never rolls back the change.
type Handler func(ctx context.Context, e Event) error

// Publisher is what use cases hand events to once Store.Atomic has returned.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber is how the notification worker binds its handlers by event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
