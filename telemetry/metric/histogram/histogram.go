//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package histogram provides histograms whose bucket boundaries can be
// replaced at runtime.
package histogram

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"trpc.group/trpc-go/trpc-solc-go/telemetry/semconv/metrics"
)

var errNilProvider = errors.New("meter provider is nil")

// dynamic holds an instrument of type H created with options of type O and
// knows how to recreate it with new bucket boundaries.
type dynamic[H any, O any] struct {
	mu         sync.RWMutex
	current    H
	mp         metric.MeterProvider
	meterName  string
	metricName string
	options    []O
	create     func(m metric.Meter, name string, opts ...O) (H, error)
	buckets    func(boundaries []float64) O
}

func (d *dynamic[H, O]) meter() metric.Meter {
	// A fresh Meter per rebuild; some SDKs cache instruments per meter.
	return d.mp.Meter(d.meterName,
		metric.WithInstrumentationAttributes(attribute.String(metrics.KeyMetricName, d.metricName)))
}

func (d *dynamic[H, O]) init() error {
	if d.mp == nil {
		return errNilProvider
	}
	h, err := d.create(d.meter(), d.metricName, d.options...)
	if err != nil {
		return err
	}
	d.current = h
	return nil
}

func (d *dynamic[H, O]) instrument() H {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// setBuckets recreates the instrument. Data recorded on the old one is not migrated.
func (d *dynamic[H, O]) setBuckets(boundaries []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mp == nil {
		return errNilProvider
	}
	opts := make([]O, 0, len(d.options)+1)
	opts = append(opts, d.options...)
	if len(boundaries) > 0 {
		opts = append(opts, d.buckets(boundaries))
	}
	h, err := d.create(d.meter(), d.metricName, opts...)
	if err != nil {
		return err
	}
	d.current = h
	return nil
}

// DynamicFloat64Histogram is a Float64Histogram with replaceable buckets.
// It is safe for concurrent use.
type DynamicFloat64Histogram struct {
	d dynamic[metric.Float64Histogram, metric.Float64HistogramOption]
}

// NewDynamicFloat64Histogram creates the histogram metricName on meterName.
func NewDynamicFloat64Histogram(
	mp metric.MeterProvider,
	meterName string,
	metricName string,
	options ...metric.Float64HistogramOption,
) (*DynamicFloat64Histogram, error) {
	h := &DynamicFloat64Histogram{d: dynamic[metric.Float64Histogram, metric.Float64HistogramOption]{
		mp:         mp,
		meterName:  meterName,
		metricName: metricName,
		options:    options,
		create: func(m metric.Meter, name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
			return m.Float64Histogram(name, opts...)
		},
		buckets: func(b []float64) metric.Float64HistogramOption {
			return metric.WithExplicitBucketBoundaries(b...)
		},
	}}
	if err := h.d.init(); err != nil {
		return nil, err
	}
	return h, nil
}

// Record records a value with the current histogram.
func (h *DynamicFloat64Histogram) Record(ctx context.Context, value float64, opts ...metric.RecordOption) {
	h.d.instrument().Record(ctx, value, opts...)
}

// SetBuckets replaces the bucket boundaries.
func (h *DynamicFloat64Histogram) SetBuckets(boundaries []float64) error {
	return h.d.setBuckets(boundaries)
}

// DynamicInt64Histogram is an Int64Histogram with replaceable buckets.
// It is safe for concurrent use.
type DynamicInt64Histogram struct {
	d dynamic[metric.Int64Histogram, metric.Int64HistogramOption]
}

// NewDynamicInt64Histogram creates the histogram metricName on meterName.
func NewDynamicInt64Histogram(
	mp metric.MeterProvider,
	meterName string,
	metricName string,
	options ...metric.Int64HistogramOption,
) (*DynamicInt64Histogram, error) {
	h := &DynamicInt64Histogram{d: dynamic[metric.Int64Histogram, metric.Int64HistogramOption]{
		mp:         mp,
		meterName:  meterName,
		metricName: metricName,
		options:    options,
		create: func(m metric.Meter, name string, opts ...metric.Int64HistogramOption) (metric.Int64Histogram, error) {
			return m.Int64Histogram(name, opts...)
		},
		buckets: func(b []float64) metric.Int64HistogramOption {
			return metric.WithExplicitBucketBoundaries(b...)
		},
	}}
	if err := h.d.init(); err != nil {
		return nil, err
	}
	return h, nil
}

// Record records a value with the current histogram.
func (h *DynamicInt64Histogram) Record(ctx context.Context, value int64, opts ...metric.RecordOption) {
	h.d.instrument().Record(ctx, value, opts...)
}

// SetBuckets replaces the bucket boundaries.
func (h *DynamicInt64Histogram) SetBuckets(boundaries []float64) error {
	return h.d.setBuckets(boundaries)
}
