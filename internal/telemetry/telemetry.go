// Пакет telemetry — провайдер трассировки OpenTelemetry с экспортом по OTLP gRPC.
// При пустом endpoint трассировка отключена: глобальный провайдер остаётся no-op.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName — имя сервиса в трассах.
const ServiceName = "tramite"

// Options — параметры трассировки.
type Options struct {
	// Endpoint — host:port OTLP-коллектора; схема отбрасывается.
	Endpoint string
	// Sampling — доля семплируемых трасс (0..1).
	Sampling float64
	Version  string
}

// Provider владеет TracerProvider и завершает его при остановке.
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger *slog.Logger
}

// New настраивает глобальный TracerProvider и propagator.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Provider, error) {
	logger = logger.With(slog.String("component", "telemetry"))
	p := &Provider{logger: logger}

	// Propagator нужен и без экспорта: trace context пробрасывается дальше.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if opts.Endpoint == "" {
		logger.Info("Трассировка отключена (TR_OTEL_ENDPOINT не задан)")
		return p, nil
	}

	endpoint := opts.Endpoint
	for _, scheme := range []string{"grpc://", "http://", "https://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("создание OTLP exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", opts.Version),
	)

	p.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.Sampling))),
	)
	otel.SetTracerProvider(p.tp)

	logger.Info("Трассировка включена",
		slog.String("endpoint", endpoint),
		slog.Float64("sampling", opts.Sampling),
	)
	return p, nil
}

// Enabled сообщает, экспортируются ли трассы.
func (p *Provider) Enabled() bool {
	return p.tp != nil
}

// Shutdown сбрасывает буфер и останавливает экспорт.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("остановка трассировки: %w", err)
	}
	p.logger.Info("Трассировка остановлена")
	return nil
}
