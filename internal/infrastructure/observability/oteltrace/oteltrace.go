// Package oteltrace backs the checkout Tracer port with the global OpenTelemetry provider.
package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultName = "minishop-checkout"

type tracer struct{ t trace.Tracer }

// New returns the tracer every use case span (PlaceOrder, VerifyPayment, ...) starts from.
// Spans are dropped until main installs an SDK provider with otel.SetTracerProvider.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultName
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// InstallPropagator makes inbound traceparent/tracestate and baggage headers parent the
// HTTP server spans. otel's default global propagator extracts nothing.
func InstallPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
