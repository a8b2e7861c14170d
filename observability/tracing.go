package observability

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig toggles OTLP/gRPC span export for façade operations.
type TracingConfig struct {
	Enabled      bool           `yaml:"enabled"`
	OTLPEndpoint string         `yaml:"otlp_endpoint"`
	Insecure     bool           `yaml:"insecure"`
	SampleRatio  float64        `yaml:"sample_ratio"`
	Resource     ResourceConfig `yaml:"resource"`
}

// ResourceConfig names the service for the OTel resource attributes.
type ResourceConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

var (
	tracingEnabled int32
	defaultTracer  trace.Tracer
)

// TracingEnabled reports whether InitTracing installed a real
// exporter; Tracer falls back to a no-op tracer otherwise.
func TracingEnabled() bool {
	return atomic.LoadInt32(&tracingEnabled) == 1
}

// Tracer returns the tracer façade operations should start spans on.
func Tracer() trace.Tracer {
	if defaultTracer != nil {
		return defaultTracer
	}
	return otel.Tracer("amqp10-client")
}

// InitTracing installs an OTLP/gRPC exporter. The returned func flushes
// and shuts the provider down; callers defer it during close.
func InitTracing(ctx context.Context, cfg TracingConfig, l *slog.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var opts []otlptracegrpc.Option
	opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		l.Error("init otlp exporter", "err", err)
		return func(context.Context) error { return nil }, nil
	}

	ratio := cfg.SampleRatio
	if ratio == 0 {
		ratio = 1
	}
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	res, _ := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.Resource.ServiceName),
		attribute.String("service.version", cfg.Resource.ServiceVersion),
		attribute.String("deployment.environment", cfg.Resource.Environment),
	))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	atomic.StoreInt32(&tracingEnabled, 1)
	defaultTracer = tp.Tracer("amqp10-client")

	return func(ctx context.Context) error { return tp.Shutdown(ctx) }, nil
}
