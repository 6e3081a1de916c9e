//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	itelemetry "trpc.group/trpc-go/trpc-solc-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/semconv/metrics"
)

func TestGRPCMetricsEndpoint(t *testing.T) {
	const (
		customEndpoint  = "custom-metric:4318"
		genericEndpoint = "generic-endpoint:4318"
	)

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", customEndpoint)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	require.Equal(t, customEndpoint, metricsEndpoint("grpc"))

	require.NoError(t, os.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ""))
	require.Equal(t, genericEndpoint, metricsEndpoint("grpc"))

	require.NoError(t, os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	require.Equal(t, "localhost:4317", metricsEndpoint("grpc"))
	require.Equal(t, "localhost:4318", metricsEndpoint("http"))
}

func TestNewMeterProvider(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "gRPC endpoint", opts: []Option{WithEndpoint("localhost:4317"), WithProtocol("grpc")}},
		{name: "HTTP endpoint", opts: []Option{WithEndpoint("localhost:4318"), WithProtocol("http")}},
		{name: "default options"},
		{name: "resilient to invalid protocol", opts: []Option{WithProtocol("invalid")}},
		{name: "service overrides", opts: []Option{
			WithServiceName("solcrun-test"),
			WithServiceNamespace("ci"),
			WithServiceVersion("9.9.9"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp, err := NewMeterProvider(context.Background(), tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, mp)
		})
	}
}

func saveInstruments(t *testing.T) {
	t.Helper()
	mp := itelemetry.MeterProvider
	meter := itelemetry.CompileMeter
	cnt := itelemetry.CompileMetricRequestCnt
	dur := itelemetry.CompileMetricDuration
	size := itelemetry.CompileMetricOutputSize
	hd, hs := compileDuration, compileOutputSize
	t.Cleanup(func() {
		itelemetry.MeterProvider = mp
		itelemetry.CompileMeter = meter
		itelemetry.CompileMetricRequestCnt = cnt
		itelemetry.CompileMetricDuration = dur
		itelemetry.CompileMetricOutputSize = size
		compileDuration, compileOutputSize = hd, hs
	})
}

func TestInitMeterProvider_RecordsCompile(t *testing.T) {
	saveInstruments(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, InitMeterProvider(mp))
	require.Equal(t, mp, GetMeterProvider())

	ctx := context.Background()
	itelemetry.RecordCompile(ctx, itelemetry.CompileAttributes{
		Outcome:     metrics.OutcomeSucceeded,
		Duration:    1500 * time.Millisecond,
		StdoutBytes: 128,
	})
	itelemetry.RecordCompile(ctx, itelemetry.CompileAttributes{
		Outcome:     metrics.OutcomeFailed,
		StderrBytes: 42,
	})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	seen := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			seen[m.Name] = true
			if m.Name == metrics.MetricSolcCompileRequestCnt {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				require.Equal(t, int64(2), total)
			}
		}
	}
	require.True(t, seen[metrics.MetricSolcCompileRequestCnt])
	require.True(t, seen[metrics.MetricSolcCompileDuration])
	require.True(t, seen[metrics.MetricSolcCompileOutputSize])
}

func TestInitMeterProvider_Nil(t *testing.T) {
	require.Error(t, InitMeterProvider(nil))
}

func TestSetHistogramBuckets(t *testing.T) {
	saveInstruments(t)
	compileDuration, compileOutputSize = nil, nil

	require.Error(t, SetHistogramBuckets(metrics.MetricSolcCompileDuration, []float64{1}))
	require.Error(t, SetHistogramBuckets("unknown", []float64{1}))

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	require.NoError(t, InitMeterProvider(mp))
	require.NoError(t, SetHistogramBuckets(metrics.MetricSolcCompileDuration, []float64{0.1, 1, 10}))
	require.NoError(t, SetHistogramBuckets(metrics.MetricSolcCompileOutputSize, []float64{1024, 65536}))
}

func TestStart(t *testing.T) {
	saveInstruments(t)

	clean, err := Start(context.Background(), WithEndpoint("localhost:4317"))
	require.NoError(t, err)
	require.NotNil(t, clean)
	_ = clean() // no collector is running in tests
}
