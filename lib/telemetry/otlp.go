package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	transportGrpc = "grpc"
	transportHttp = "http"
)

const (
	defaultMetricInterval = 30 * time.Second
	exporterSetupTimeout  = 3 * time.Second
)

// OtlpConnConfig is where one signal is exported to, only one of the endpoints may be set.
type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) Enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

func (c OtlpConnConfig) transport() (kind, endpoint string) {
	if c.GrpcEndpoint != "" {
		return transportGrpc, c.GrpcEndpoint
	}
	return transportHttp, c.HttpEndpoint
}

func (c OtlpConnConfig) validate(signal string) error {
	if c.GrpcEndpoint != "" && c.HttpEndpoint != "" {
		return fmt.Errorf("otlp.%s: grpc_endpoint and http_endpoint are mutually exclusive", signal)
	}
	return nil
}

type TracesConfig struct {
	OtlpConnConfig
	// SampleRatio is the fraction of root spans kept, 0 keeps all of them.
	SampleRatio float64 `json:"sample_ratio"`
}

type MetricsConfig struct {
	OtlpConnConfig
	IntervalSeconds int `json:"interval_seconds"`
}

type OtlpConfig struct {
	Traces  TracesConfig  `json:"traces"`
	Metrics MetricsConfig `json:"metrics"`
}

type Config struct {
	// Environment is reported as deployment.environment, ex. "production".
	Environment string     `json:"environment"`
	Otlp        OtlpConfig `json:"otlp"`
}

func (c Config) Validate() error {
	err := c.Otlp.Traces.validate("traces")
	if err != nil {
		return err
	}
	err = c.Otlp.Metrics.validate("metrics")
	if err != nil {
		return err
	}
	if c.Otlp.Traces.SampleRatio < 0 || c.Otlp.Traces.SampleRatio > 1 {
		return fmt.Errorf("otlp.traces.sample_ratio must be between 0 and 1, got %v", c.Otlp.Traces.SampleRatio)
	}
	if c.Otlp.Metrics.IntervalSeconds < 0 {
		return fmt.Errorf("otlp.metrics.interval_seconds must not be negative")
	}
	return nil
}

func (c MetricsConfig) interval() time.Duration {
	if c.IntervalSeconds == 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c TracesConfig) sampler() trace.Sampler {
	if c.SampleRatio == 0 || c.SampleRatio == 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
}

func newResource(ctx context.Context, serviceName, version, environment string) (*resource.Resource, error) {
	attributes := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	}
	if environment != "" {
		attributes = append(attributes, semconv.DeploymentEnvironment(environment))
	}
	r, err := resource.New(
		ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithHost(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(attributes...),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), r)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c TracesConfig) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterSetupTimeout)
	defer cancel()

	var exporter trace.SpanExporter
	var err error
	kind, endpoint := c.transport()
	switch kind {
	case transportGrpc:
		exporter, err = otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(endpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	default:
		exporter, err = otlptracehttp.New(
			ctx,
			otlptracehttp.WithEndpointURL(endpoint),
			otlptracehttp.WithHeaders(c.Headers),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("trace exporter (%s): %w", kind, err)
	}
	slog.Debug("trace exporter initialized", "type", kind, "endpoint", endpoint, "sample_ratio", c.SampleRatio)

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
		trace.WithSampler(c.sampler()),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c MetricsConfig) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterSetupTimeout)
	defer cancel()

	var exporter metric.Exporter
	var err error
	kind, endpoint := c.transport()
	switch kind {
	case transportGrpc:
		exporter, err = otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(endpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	default:
		exporter, err = otlpmetrichttp.New(
			ctx,
			otlpmetrichttp.WithEndpointURL(endpoint),
			otlpmetrichttp.WithHeaders(c.Headers),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("metric exporter (%s): %w", kind, err)
	}
	slog.Debug("metric exporter initialized", "type", kind, "endpoint", endpoint, "interval", c.interval())

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(c.interval()))),
		metric.WithResource(r),
	), nil
}
