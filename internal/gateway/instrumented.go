package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/drem-apurimac/tramite/internal/gateway"

var (
	// gatewayOpsTotal — операции хранилища по коллекции и результату.
	gatewayOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tr_gateway_operations_total",
			Help: "Количество операций Persistence Gateway",
		},
		[]string{"backend", "op", "collection", "result"},
	)

	// gatewayOpDuration — длительность операций хранилища.
	gatewayOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tr_gateway_operation_duration_seconds",
			Help:    "Длительность операций Persistence Gateway в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// Instrumented — обёртка над Gateway: таймаут на операцию, Prometheus
// метрики и OpenTelemetry span'ы.
type Instrumented struct {
	next    Gateway
	backend string
	timeout time.Duration
	tracer  trace.Tracer
}

var _ Gateway = (*Instrumented)(nil)

// Instrument оборачивает next. timeout <= 0 отключает ограничение.
func Instrument(next Gateway, backend string, timeout time.Duration) *Instrumented {
	return &Instrumented{
		next:    next,
		backend: backend,
		timeout: timeout,
		tracer:  otel.Tracer(tracerName),
	}
}

func (g *Instrumented) List(ctx context.Context, collection string) ([]Document, error) {
	var docs []Document
	err := g.observe(ctx, "list", collection, "", func(ctx context.Context) error {
		var err error
		docs, err = g.next.List(ctx, collection)
		return err
	})
	return docs, err
}

func (g *Instrumented) Get(ctx context.Context, collection, id string) (Document, error) {
	var doc Document
	err := g.observe(ctx, "get", collection, id, func(ctx context.Context) error {
		var err error
		doc, err = g.next.Get(ctx, collection, id)
		return err
	})
	return doc, err
}

func (g *Instrumented) Put(ctx context.Context, collection, id string, fields json.RawMessage, merge bool) error {
	op := "put"
	if merge {
		op = "merge"
	}
	return g.observe(ctx, op, collection, id, func(ctx context.Context) error {
		return g.next.Put(ctx, collection, id, fields, merge)
	})
}

func (g *Instrumented) Remove(ctx context.Context, collection, id string) error {
	return g.observe(ctx, "remove", collection, id, func(ctx context.Context) error {
		return g.next.Remove(ctx, collection, id)
	})
}

// Ping проксирует проверку доступности, если backend её поддерживает.
func (g *Instrumented) Ping(ctx context.Context) error {
	p, ok := g.next.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

func (g *Instrumented) observe(ctx context.Context, op, collection, id string, fn func(context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", g.backend),
			attribute.String("db.collection.name", collection),
		),
	)
	defer span.End()
	if id != "" {
		span.SetAttributes(attribute.String("db.document.id", id))
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && err != nil && !errors.Is(err, ErrConnection) {
		err = ConnectionError(op, err)
	}
	gatewayOpDuration.WithLabelValues(g.backend, op).Observe(time.Since(start).Seconds())
	gatewayOpsTotal.WithLabelValues(g.backend, op, collection, resultLabel(err)).Inc()

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrNotFound):
		// Отсутствие документа — штатный исход.
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid"
	default:
		return "error"
	}
}
