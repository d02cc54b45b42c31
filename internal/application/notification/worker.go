// Package notification forwards committed domain events to the realtime channel and
// the invoice mailer. Delivery is best effort.
package notification

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// Sink pushes updates to connected clients.
type Sink interface {
	PublishOrderUpdate(ctx context.Context, o *domorder.Order) error
	PublishStockUpdate(ctx context.Context, evt variant.StockChangedEvent) error
}

// InvoiceSender delivers an order invoice to recipient.
type InvoiceSender interface {
	SendInvoice(ctx context.Context, recipient string, o *domorder.Order) error
}

const (
	workerService = "notification-worker"
	spanPrefix    = "Worker."
)

type Worker struct {
	sink    Sink
	mailer  InvoiceSender
	log     observability.Logger
	tracer  observability.Tracer
	effects observability.Counter // side_effects_total{effect,outcome}
	reqs    observability.Counter // usecase_requests_total{use_case,outcome}
	dur     observability.Histogram
}

func NewWorker(sink Sink, mailer InvoiceSender, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Worker{
		sink:    sink,
		mailer:  mailer,
		log:     tel.Logger().With(observability.F("service", workerService)),
		tracer:  tel.Tracer(),
		effects: m.Counter(observability.MSideEffects),
		reqs:    m.Counter(observability.MUsecaseRequests),
		dur:     m.Histogram(observability.MUsecaseDuration),
	}
}

// Handlers maps the event names the worker consumes to their handlers.
func (w *Worker) Handlers() map[string]domoutbox.Handler {
	return map[string]domoutbox.Handler{
		domorder.OrderUpdatedEvent{}.EventName():     w.handleOrderUpdated,
		variant.StockChangedEvent{}.EventName():      w.handleStockChanged,
		domorder.InvoiceRequestedEvent{}.EventName(): w.handleInvoiceRequested,
	}
}

func (w *Worker) handleOrderUpdated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderUpdatedEvent)
	if !ok || evt.Order == nil || w.sink == nil {
		return nil
	}
	return w.run(ctx, "notify.order_update", "OrderUpdate", evt.Order.ID, func(ctx context.Context) error {
		return w.sink.PublishOrderUpdate(ctx, evt.Order)
	})
}

func (w *Worker) handleStockChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(variant.StockChangedEvent)
	if !ok || w.sink == nil {
		return nil
	}
	return w.run(ctx, "notify.stock_update", "StockUpdate", evt.VariantID, func(ctx context.Context) error {
		return w.sink.PublishStockUpdate(ctx, evt)
	})
}

func (w *Worker) handleInvoiceRequested(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.InvoiceRequestedEvent)
	if !ok || evt.Order == nil || w.mailer == nil {
		return nil
	}
	if evt.Recipient == "" {
		logctx.FromOr(ctx, w.log).Warn("invoice_skipped_no_recipient",
			observability.F("order_id", evt.Order.ID),
		)
		w.effects.Add(1, observability.L("effect", "notify.invoice"), observability.L("outcome", "skipped"))
		return nil
	}
	return w.run(ctx, "notify.invoice", "Invoice", evt.Order.ID, func(ctx context.Context) error {
		return w.mailer.SendInvoice(ctx, evt.Recipient, evt.Order)
	})
}

// run executes one side effect. Failures are logged and counted and never retried.
func (w *Worker) run(ctx context.Context, useCase, name, subject string, fn func(context.Context) error) (err error) {
	ctx, span := w.tracer.Start(ctx, spanPrefix+name,
		attribute.String("use_case", useCase),
		attribute.String("subject", subject),
	)
	start := time.Now()
	logger := logctx.FromOr(ctx, w.log).With(observability.F("use_case", useCase))
	outcome, status := "success", "OK"

	defer func() {
		if r := recover(); r != nil {
			outcome, status = "error", "PANIC"
			err = fmt.Errorf("notification: panic: %v", r)
		}
		lat := time.Since(start).Seconds()
		w.reqs.Add(1, observability.L("use_case", useCase), observability.L("outcome", outcome))
		w.dur.Observe(lat, observability.L("use_case", useCase))
		w.effects.Add(1, observability.L("effect", useCase), observability.L("outcome", outcome))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
			observability.F("subject", subject),
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
			fields = append(fields, observability.F("error", err.Error()))
			logger.Warn("side_effect_failed", fields...)
		} else {
			span.SetStatus(codes.Ok, status)
			logger.Info("use_case_done", fields...)
		}
		span.End()
	}()

	if err = fn(ctx); err != nil {
		outcome, status = "error", "DELIVERY_FAILED"
		return err
	}
	return nil
}
