package coordinator

import (
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-taskhub/converter"
	mi "github.com/cschleiden/go-taskhub/internal/metrics"
	"github.com/cschleiden/go-taskhub/metrics"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Logger *slog.Logger

	Metrics metrics.Client

	// TracerProvider is used to create activity spans. If nil, activities are executed without tracing.
	TracerProvider trace.TracerProvider

	// Converter is the converter to use for serializing and deserializing inputs and results. If not explicitly set
	// converter.DefaultConverter is used.
	Converter converter.Converter

	Clock clock.Clock
}

var DefaultOptions Options = Options{
	Logger:    slog.Default(),
	Metrics:   mi.NewNoopClient(),
	Converter: converter.DefaultConverter,
	Clock:     clock.New(),
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMetrics(client metrics.Client) Option {
	return func(o *Options) {
		o.Metrics = client
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

func WithConverter(converter converter.Converter) Option {
	return func(o *Options) {
		o.Converter = converter
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

func ApplyOptions(opts ...Option) Options {
	options := DefaultOptions

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	if options.Metrics == nil {
		options.Metrics = mi.NewNoopClient()
	}

	if options.Converter == nil {
		options.Converter = converter.DefaultConverter
	}

	if options.Clock == nil {
		options.Clock = clock.New()
	}

	return options
}

// Tracer returns the tracer for activity spans, or nil if tracing is disabled.
func (o *Options) Tracer() trace.Tracer {
	if o.TracerProvider == nil {
		return nil
	}

	return o.TracerProvider.Tracer("go-taskhub")
}
