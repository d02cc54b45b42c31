package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// WithEventContext injects a request-scoped logger for background executions.
// Only dynamic fields are added: event_id (generated if empty), trace_id/span_id when valid,
// and caller-provided low-cardinality attributes such as "event" or "worker".
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	tel observability.Observability,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = tel.Logger()
	}
	if attrs == nil {
		attrs = make(map[string]string)
	}

	fields := make([]observability.Field, 0, 6)

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Subscribe registers handlers on sub, giving every delivery its own event-scoped logger.
func Subscribe(
	sub domoutbox.Subscriber,
	tel observability.Observability,
	worker string,
	handlers map[string]domoutbox.Handler,
) {
	if sub == nil {
		return
	}
	if tel == nil {
		tel = observability.Nop()
	}
	for name, h := range handlers {
		eventName, handler := name, h
		sub.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
			sc := trace.SpanContextFromContext(ctx)
			ctx = WithEventContext(ctx, logctx.From(ctx), tel, sc.TraceID(), sc.SpanID(), map[string]string{
				"event":  eventName,
				"worker": worker,
			})
			return handler(ctx, e)
		})
	}
}
