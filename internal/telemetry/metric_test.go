//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"trpc.group/trpc-go/trpc-solc-go/telemetry/semconv/metrics"
)

func TestRecordCompile_Noop(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCompile(context.Background(), CompileAttributes{Outcome: metrics.OutcomeFailed})
	})
}

func TestRecordCompile(t *testing.T) {
	oldCnt, oldDur, oldSize := CompileMetricRequestCnt, CompileMetricDuration, CompileMetricOutputSize
	t.Cleanup(func() {
		CompileMetricRequestCnt, CompileMetricDuration, CompileMetricOutputSize = oldCnt, oldDur, oldSize
	})

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter(metrics.MeterNameCompile)
	var err error
	CompileMetricRequestCnt, err = meter.Int64Counter(metrics.MetricSolcCompileRequestCnt)
	require.NoError(t, err)
	CompileMetricDuration, err = meter.Float64Histogram(metrics.MetricSolcCompileDuration)
	require.NoError(t, err)
	CompileMetricOutputSize, err = meter.Int64Histogram(metrics.MetricSolcCompileOutputSize)
	require.NoError(t, err)

	ctx := context.Background()
	RecordCompile(ctx, CompileAttributes{
		Outcome:     metrics.OutcomeSucceeded,
		Duration:    1500 * time.Millisecond,
		StdoutBytes: 4096,
		StderrBytes: 10,
	})
	RecordCompile(ctx, CompileAttributes{Outcome: metrics.OutcomeInterrupted})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]metricdata.Aggregation{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		got[m.Name] = m.Data
	}

	cnt, ok := got[metrics.MetricSolcCompileRequestCnt].(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := map[string]int64{}
	for _, dp := range cnt.DataPoints {
		v, _ := dp.Attributes.Value(metrics.KeySolcOutcome)
		byOutcome[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{metrics.OutcomeSucceeded: 1, metrics.OutcomeInterrupted: 1}, byOutcome)

	dur, ok := got[metrics.MetricSolcCompileDuration].(metricdata.Histogram[float64])
	require.True(t, ok)
	var durSum float64
	for _, dp := range dur.DataPoints {
		durSum += dp.Sum
	}
	assert.InDelta(t, 1.5, durSum, 1e-9)

	size, ok := got[metrics.MetricSolcCompileOutputSize].(metricdata.Histogram[int64])
	require.True(t, ok)
	byStream := map[string]int64{}
	for _, dp := range size.DataPoints {
		v, _ := dp.Attributes.Value(metrics.KeySolcStream)
		byStream[v.AsString()] += dp.Sum
	}
	assert.Equal(t, map[string]int64{metrics.StreamStdout: 4096, metrics.StreamStderr: 10}, byStream)
}
