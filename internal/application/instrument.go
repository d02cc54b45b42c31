package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SpanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Instrument carries the tracer, base logger and RED metrics shared by a service's use cases.
type Instrument struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstrument(tel observability.Observability, service string) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (i *Instrument) Logger() observability.Logger { return i.log }

// Call tracks one use case execution until End.
type Call struct {
	inst    *Instrument
	ctx     context.Context
	span    trace.Span
	start   time.Time
	useCase string
	logger  observability.Logger
	fields  []observability.Field

	Outcome string
	Status  string
}

// Begin opens the span and prepares the request-scoped logger for useCase.
func (i *Instrument) Begin(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := i.tracer.Start(ctx, SpanPrefix+name, attrs...)
	logger := logctx.FromOr(ctx, i.log).With(observability.F("use_case", useCase))
	ctx = logctx.With(ctx, logger)
	return ctx, &Call{
		inst:    i,
		ctx:     ctx,
		span:    span,
		start:   time.Now(),
		useCase: useCase,
		logger:  logger,
		Outcome: "success",
		Status:  "OK",
	}
}

func (c *Call) Span() trace.Span { return c.span }

func (c *Call) Logger() observability.Logger { return c.logger }

// Fail marks the call as failed with a machine-readable status.
func (c *Call) Fail(status string) {
	c.Outcome, c.Status = "error", status
}

// Field adds a field to the final use_case_done line.
func (c *Call) Field(key string, value any) {
	c.fields = append(c.fields, observability.F(key, value))
}

// End records span status, metrics and the use_case_done log line.
func (c *Call) End(err error) {
	lat := time.Since(c.start).Seconds()
	if err != nil && c.Outcome == "success" {
		c.Outcome = "error"
		if c.Status == "OK" {
			c.Status = "FAILED"
		}
	}

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.Status)
		} else {
			c.span.SetStatus(codes.Ok, c.Status)
		}
		c.span.End()
	}

	c.inst.reqCounter.Add(1,
		observability.L("use_case", c.useCase),
		observability.L("outcome", c.Outcome),
	)
	c.inst.durHistogram.Observe(lat, observability.L("use_case", c.useCase))

	fields := []observability.Field{
		observability.F("outcome", c.Outcome),
		observability.F("status", c.Status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(c.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, c.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	c.logger.Info("use_case_done", fields...)
}

// Publish enqueues events after commit. Failures are logged and returned but never undo the
// committed work.
func (i *Instrument) Publish(ctx context.Context, pub domoutbox.Publisher, events ...domoutbox.Event) error {
	if pub == nil {
		return nil
	}
	logger := logctx.FromOr(ctx, i.log)
	var firstErr error
	for _, e := range events {
		if e == nil {
			continue
		}
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		start := time.Now()
		outcome := "success"
		err := pub.Publish(pubCtx, e)
		if err != nil {
			outcome = "error"
		} else if pubCtx.Err() != nil {
			outcome = "canceled"
			err = pubCtx.Err()
		}
		cancel()

		i.extCounter.Add(1,
			observability.L("peer", publishPeer),
			observability.L("endpoint", e.EventName()),
			observability.L("outcome", outcome),
		)
		i.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", publishPeer),
			observability.L("endpoint", e.EventName()),
		)
		if err != nil {
			logger.Warn("event_publish_failed",
				observability.F("event", e.EventName()),
				observability.F("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// External records a call to a third-party peer such as the payment gateway.
func (i *Instrument) External(peer, endpoint string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	i.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	i.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}
