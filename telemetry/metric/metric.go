//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package metric wires OpenTelemetry metrics for compiler invocations.
package metric

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	itelemetry "trpc.group/trpc-go/trpc-solc-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/metric/histogram"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/semconv/metrics"
)

var (
	compileDuration   *histogram.DynamicFloat64Histogram
	compileOutputSize *histogram.DynamicInt64Histogram
)

// InitMeterProvider creates the compile instruments on mp and makes them
// the ones solc records into.
func InitMeterProvider(mp metric.MeterProvider) error {
	if mp == nil {
		return fmt.Errorf("meter provider is nil")
	}
	meter := mp.Meter(metrics.MeterNameCompile)
	requestCnt, err := meter.Int64Counter(
		metrics.MetricSolcCompileRequestCnt,
		metric.WithDescription("Total number of compiler invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compile metric %s: %w", metrics.MetricSolcCompileRequestCnt, err)
	}
	duration, err := histogram.NewDynamicFloat64Histogram(
		mp,
		metrics.MeterNameCompile,
		metrics.MetricSolcCompileDuration,
		metric.WithDescription("Wall time of a compiler invocation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compile metric %s: %w", metrics.MetricSolcCompileDuration, err)
	}
	size, err := histogram.NewDynamicInt64Histogram(
		mp,
		metrics.MeterNameCompile,
		metrics.MetricSolcCompileOutputSize,
		metric.WithDescription("Bytes collected from one compiler output stream"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compile metric %s: %w", metrics.MetricSolcCompileOutputSize, err)
	}

	itelemetry.MeterProvider = mp
	itelemetry.CompileMeter = meter
	itelemetry.CompileMetricRequestCnt = requestCnt
	itelemetry.CompileMetricDuration = duration
	itelemetry.CompileMetricOutputSize = size
	compileDuration = duration
	compileOutputSize = size
	return nil
}

// GetMeterProvider returns the meter provider.
func GetMeterProvider() metric.MeterProvider {
	return itelemetry.MeterProvider
}

// SetHistogramBuckets updates bucket boundaries for one of the compile
// histograms. InitMeterProvider must have been called first.
func SetHistogramBuckets(metricName string, boundaries []float64) error {
	switch metricName {
	case metrics.MetricSolcCompileDuration:
		if compileDuration == nil {
			return fmt.Errorf("compile metric %s not initialized", metricName)
		}
		return compileDuration.SetBuckets(boundaries)
	case metrics.MetricSolcCompileOutputSize:
		if compileOutputSize == nil {
			return fmt.Errorf("compile metric %s not initialized", metricName)
		}
		return compileOutputSize.SetBuckets(boundaries)
	default:
		return fmt.Errorf("unknown or unsupported histogram: %s", metricName)
	}
}

// NewMeterProvider creates a meter provider exporting over OTLP.
// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT and OTEL_EXPORTER_OTLP_ENDPOINT are
// consulted when no endpoint option is given.
func NewMeterProvider(ctx context.Context, opts ...Option) (*sdkmetric.MeterProvider, error) {
	options := &options{
		serviceName:      itelemetry.ServiceName,
		serviceVersion:   itelemetry.ServiceVersion,
		serviceNamespace: itelemetry.ServiceNamespace,
		protocol:         itelemetry.ProtocolGRPC,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.metricsEndpoint == "" {
		options.metricsEndpoint = metricsEndpoint(options.protocol)
	}

	res, err := buildResource(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch options.protocol {
	case itelemetry.ProtocolHTTP:
		exporter, err = otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(options.metricsEndpoint),
			otlpmetrichttp.WithInsecure())
	default:
		exporter, err = newGRPCExporter(ctx, options.metricsEndpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

func newGRPCExporter(ctx context.Context, endpoint string) (sdkmetric.Exporter, error) {
	conn, err := itelemetry.NewGRPCConn(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics connection: %w", err)
	}
	return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
}

// Start creates an OTLP meter provider, installs it with InitMeterProvider
// and returns a function that flushes and shuts it down.
func Start(ctx context.Context, opts ...Option) (func() error, error) {
	mp, err := NewMeterProvider(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := InitMeterProvider(mp); err != nil {
		return nil, err
	}
	return func() error {
		return mp.Shutdown(context.Background())
	}, nil
}

func metricsEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	switch protocol {
	case itelemetry.ProtocolHTTP:
		return "localhost:4318" // otlpmetrichttp appends /v1/metrics
	default:
		return "localhost:4317"
	}
}

// Option is a function that configures meter options.
type Option func(*options)

type options struct {
	metricsEndpoint    string
	serviceName        string
	serviceVersion     string
	serviceNamespace   string
	protocol           string // grpc or http
	resourceAttributes []attribute.KeyValue
}

// WithEndpoint sets the metrics endpoint (host:port, no scheme or path).
// It takes precedence over the OTEL_EXPORTER_OTLP_* environment variables.
func WithEndpoint(endpoint string) Option {
	return func(opts *options) {
		opts.metricsEndpoint = endpoint
	}
}

// WithProtocol sets the export protocol: "grpc" (default) or "http".
func WithProtocol(protocol string) Option {
	return func(opts *options) {
		opts.protocol = protocol
	}
}

// WithServiceName overrides the service.name resource attribute.
func WithServiceName(serviceName string) Option {
	return func(opts *options) {
		opts.serviceName = serviceName
	}
}

// WithServiceNamespace overrides the service.namespace resource attribute.
func WithServiceNamespace(serviceNamespace string) Option {
	return func(opts *options) {
		opts.serviceNamespace = serviceNamespace
	}
}

// WithServiceVersion overrides the service.version resource attribute.
func WithServiceVersion(serviceVersion string) Option {
	return func(opts *options) {
		opts.serviceVersion = serviceVersion
	}
}

// WithResourceAttributes appends custom resource attributes.
func WithResourceAttributes(attrs ...attribute.KeyValue) Option {
	return func(opts *options) {
		opts.resourceAttributes = append(opts.resourceAttributes, attrs...)
	}
}

func buildResource(ctx context.Context, options *options) (*resource.Resource, error) {
	resourceOpts := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceNamespace(options.serviceNamespace),
			semconv.ServiceName(options.serviceName),
			semconv.ServiceVersion(options.serviceVersion),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	}
	if len(options.resourceAttributes) > 0 {
		resourceOpts = append(resourceOpts, resource.WithAttributes(options.resourceAttributes...))
	}
	return resource.New(ctx, resourceOpts...)
}
