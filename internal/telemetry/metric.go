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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"trpc.group/trpc-go/trpc-solc-go/telemetry/semconv/metrics"
)

// Float64Recorder is satisfied by metric.Float64Histogram and by the
// dynamic histograms whose buckets can be changed at runtime.
type Float64Recorder interface {
	Record(ctx context.Context, value float64, opts ...metric.RecordOption)
}

// Int64Recorder is the int64 counterpart of Float64Recorder.
type Int64Recorder interface {
	Record(ctx context.Context, value int64, opts ...metric.RecordOption)
}

var (
	// MeterProvider is the provider the compile meter was created from.
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	// CompileMeter is the meter used for compiler invocation metrics.
	CompileMeter = MeterProvider.Meter(metrics.MeterNameCompile)

	// CompileMetricRequestCnt counts invocations by outcome.
	CompileMetricRequestCnt metric.Int64Counter = noop.Int64Counter{}
	// CompileMetricDuration records invocation wall time in seconds.
	CompileMetricDuration Float64Recorder = noop.Float64Histogram{}
	// CompileMetricOutputSize records bytes collected per stream.
	CompileMetricOutputSize Int64Recorder = noop.Int64Histogram{}
)

// CompileAttributes describes one finished invocation.
type CompileAttributes struct {
	Outcome     string
	Duration    time.Duration
	StdoutBytes int
	StderrBytes int
}

// RecordCompile reports one finished invocation to every compile instrument.
func RecordCompile(ctx context.Context, a CompileAttributes) {
	outcome := metric.WithAttributes(attribute.String(metrics.KeySolcOutcome, a.Outcome))
	CompileMetricRequestCnt.Add(ctx, 1, outcome)
	CompileMetricDuration.Record(ctx, a.Duration.Seconds(), outcome)
	CompileMetricOutputSize.Record(ctx, int64(a.StdoutBytes),
		metric.WithAttributes(attribute.String(metrics.KeySolcStream, metrics.StreamStdout)))
	CompileMetricOutputSize.Record(ctx, int64(a.StderrBytes),
		metric.WithAttributes(attribute.String(metrics.KeySolcStream, metrics.StreamStderr)))
}
