package main

import (
	"context"
	"fmt"

	"github.com/cschleiden/go-taskhub/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type tracerProvider struct {
	// nil when tracing is disabled
	provider *sdktrace.TracerProvider
}

func (tp *tracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}

	return tp.provider.Shutdown(ctx)
}

func newTracerProvider(ctx context.Context, cfg config.TracingConfig) (*tracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch cfg.Exporter {
	case config.ExporterNone:
		return &tracerProvider{}, nil

	case config.ExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())

	case config.ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exp, err = otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s exporter: %w", cfg.Exporter, err)
	}

	r, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String("taskhub-worker")))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &tracerProvider{provider: tp}, nil
}
