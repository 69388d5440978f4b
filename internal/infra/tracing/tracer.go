package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// InitTracer installs a global tracer provider exporting over OTLP/HTTP to endpoint.
func InitTracer(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// Setup starts tracing when enabled and returns a shutdown func that is always
// safe to call. Failing to reach the collector is logged, not fatal.
func Setup(ctx context.Context, enabled bool, endpoint, serviceName string, logger *zap.Logger) func(context.Context) {
	noop := func(context.Context) {}
	if !enabled {
		return noop
	}

	tp, err := InitTracer(ctx, endpoint, serviceName)
	if err != nil {
		logger.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		return noop
	}
	logger.Info("tracing enabled", zap.String("endpoint", endpoint))

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
}
