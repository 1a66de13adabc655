// Package telemetry wires OpenTelemetry tracing for stripclass.
//
// Tracing is off unless OTEL_ENABLED=true (or the config enables it). When
// off, the global no-op provider stays installed and spans cost nothing.
// Recognised environment variables:
//
//	OTEL_ENABLED                 enable tracing (default false)
//	OTEL_SERVICE_NAME            service name (default stripclass)
//	OTEL_SERVICE_VERSION         service version (default unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT  collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL  grpc or http/protobuf (default grpc)
//	OTEL_EXPORTER_OTLP_HEADERS   k=v,k=v headers
//	OTEL_EXPORTER_OTLP_INSECURE  plaintext transport
//	OTEL_TRACES_SAMPLER          always_on, always_off, traceidratio, parentbased_*
//	OTEL_TRACES_SAMPLER_ARG      sampler ratio
//	OTEL_RESOURCE_ATTRIBUTES     extra k=v,k=v resource attributes
package telemetry

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by stripclass packages.
const InstrumentationName = "github.com/stripclass"

// ShutdownFunc flushes and stops the TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

var enabled atomic.Bool

// Init installs a global TracerProvider for cfg. A nil cfg is loaded from
// the environment. When tracing is disabled Init does nothing.
func Init(ctx context.Context, cfg *Config) (ShutdownFunc, error) {
	if cfg == nil {
		cfg = LoadFromEnv()
	}
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	enabled.Store(true)

	return func(ctx context.Context) error {
		enabled.Store(false)
		return tp.Shutdown(ctx)
	}, nil
}

// Enabled reports whether Init installed a provider.
func Enabled() bool {
	return enabled.Load()
}

// Tracer returns the stripclass tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartSpan starts a span named name with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

func buildResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if host, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.HostName(host))
	}
	for k, v := range cfg.ResourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
}

func createSampler(cfg *Config) sdktrace.Sampler {
	switch cfg.Sampler {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(parseRatio(cfg.SamplerArg))
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(parseRatio(cfg.SamplerArg)))
	default:
		return sdktrace.AlwaysSample()
	}
}

// parseRatio clamps s to [0, 1], defaulting to 1.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1
	}
	return min(max(ratio, 0), 1)
}
