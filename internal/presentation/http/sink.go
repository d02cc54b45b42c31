package httppresentation

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

const (
	eventOrderUpdate = "order:update"
	eventStockUpdate = "stock:update"
)

// Broadcaster pushes a named event to every connected realtime client.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, data any) error
}

// NotificationSink renders domain changes with the same JSON shapes the REST routes return
// and hands them to the realtime channel.
type NotificationSink struct {
	out Broadcaster
}

func NewNotificationSink(out Broadcaster) *NotificationSink {
	return &NotificationSink{out: out}
}

func (s *NotificationSink) PublishOrderUpdate(ctx context.Context, o *order.Order) error {
	dto := orderFrom(o)
	// Every client receives the broadcast; contact details stay off the wire.
	dto.Guest, dto.ContactEmail = nil, ""
	return s.out.Broadcast(ctx, eventOrderUpdate, dto)
}

func (s *NotificationSink) PublishStockUpdate(ctx context.Context, e variant.StockChangedEvent) error {
	if e.Deleted || e.Variant == nil {
		return s.out.Broadcast(ctx, eventStockUpdate, deletedVariantDTO{ID: e.VariantID, Deleted: true})
	}
	return s.out.Broadcast(ctx, eventStockUpdate, variantFrom(e.Variant))
}
