// Package otel configures OpenTelemetry tracing for prep processes.
package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Settings selects the trace exporter. The zero value disables tracing.
type Settings struct {
	Endpoint    string  `env:"PREP_OTEL_ENDPOINT"`
	Enabled     bool    `env:"PREP_OTEL_ENABLED" envDefault:"true"`
	SampleRatio float64 `env:"PREP_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether Setup would register a tracer provider.
func (s Settings) Active() bool {
	return s.Enabled && strings.TrimSpace(s.Endpoint) != ""
}

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: without an endpoint, or when disabled, Setup returns a
// no-op shutdown function and no global provider is registered.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName string, settings Settings) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !settings.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(strings.TrimSpace(settings.Endpoint)),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(settings.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
