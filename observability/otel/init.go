package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	defaultEndpoint = "localhost:4318"
	traceBatchDelay = 2 * time.Second
	traceBatchSize  = 512
	metricInterval  = 15 * time.Second
)

// Config selects which OTLP exporters farmd runs and where they send data.
type Config struct {
	ServiceName string
	Environment string
	Network     string
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	Metrics     bool
	Traces      bool
	// SampleRatio is the fraction of root spans recorded. Zero records all.
	SampleRatio float64
}

// Enabled reports whether any exporter is requested.
func (c Config) Enabled() bool { return c.Metrics || c.Traces }

func (c Config) endpoint() string {
	if strings.TrimSpace(c.Endpoint) == "" {
		return defaultEndpoint
	}
	return strings.TrimSpace(c.Endpoint)
}

func (c Config) sampler() sdktrace.Sampler {
	if c.SampleRatio > 0 && c.SampleRatio < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
	}
	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func (c Config) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(c.ServiceName)}
	if c.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(c.Environment))
	}
	if c.Network != "" {
		attrs = append(attrs, attribute.String("farm.network", c.Network))
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

type shutdownFunc func(context.Context) error

// Init installs the global tracer and meter providers requested by cfg and
// returns a function that flushes and stops them in reverse order.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return nil, errors.New("telemetry: service name required")
	}
	if !cfg.Enabled() {
		return func(context.Context) error { return nil }, nil
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	var stops []shutdownFunc
	if cfg.Traces {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
	}
	if cfg.Metrics {
		mp, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			_ = shutdownAll(ctx, stops)
			return nil, err
		}
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return func(ctx context.Context) error { return shutdownAll(ctx, stops) }, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.endpoint())}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(traceBatchDelay),
			sdktrace.WithMaxExportBatchSize(traceBatchSize),
		),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint())}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval))),
	), nil
}

// shutdownAll stops providers newest first and keeps the first error.
func shutdownAll(ctx context.Context, stops []shutdownFunc) error {
	var first error
	for i := len(stops) - 1; i >= 0; i-- {
		if err := stops[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ParseHeaders reads exporter headers written as "key=value,key2=value2".
// Pairs without a key or an "=" are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}
