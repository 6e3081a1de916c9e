//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func restoreTracer(t *testing.T) {
	t.Helper()
	tp, tr := TracerProvider, Tracer
	t.Cleanup(func() {
		TracerProvider, Tracer = tp, tr
	})
}

func TestTracesEndpoint(t *testing.T) {
	const (
		customEndpoint  = "custom-trace:4317"
		genericEndpoint = "generic-endpoint:4317"
	)

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", customEndpoint)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	require.Equal(t, customEndpoint, tracesEndpoint("grpc"))

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	require.Equal(t, genericEndpoint, tracesEndpoint("grpc"))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	require.Equal(t, "localhost:4317", tracesEndpoint("grpc"))
	require.Equal(t, "localhost:4318", tracesEndpoint("http"))
}

func TestParseEndpointURL(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		endpoint  string
		urlPath   string
		wantError bool
	}{
		{"with scheme and path", "http://localhost:3000/api/public/otel", "localhost:3000", "/api/public/otel", false},
		{"without scheme", "collector:4318/otlp/v1/traces", "collector:4318", "/otlp/v1/traces", false},
		{"no path implies slash", "example.com", "example.com", "/", false},
		{"no host error", "http:///missing-host", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			endpoint, path, err := parseEndpointURL(tc.in)
			if tc.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.endpoint, endpoint)
			require.Equal(t, tc.urlPath, path)
		})
	}
}

func TestStart(t *testing.T) {
	cases := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "grpc default", opts: []Option{WithEndpoint("localhost:4317")}},
		{name: "grpc with url and headers", opts: []Option{
			WithProtocol("grpc"),
			WithEndpointURL("localhost:9999"),
			WithHeaders(map[string]string{"Authorization": "Bearer abc"}),
		}},
		{name: "http with url", opts: []Option{
			WithProtocol("http"),
			WithEndpointURL("http://localhost:4318/custom/path"),
			WithHeaders(map[string]string{"X-Test": "yes"}),
		}},
		{name: "http url without scheme", opts: []Option{
			WithProtocol("http"),
			WithEndpointURL("collector:4318/otlp/v1/traces"),
		}},
		{name: "http invalid url", opts: []Option{
			WithProtocol("http"),
			WithEndpointURL("http:///bad"),
		}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			restoreTracer(t)
			clean, err := Start(context.Background(), tc.opts...)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, clean)
			_, span := Tracer.Start(context.Background(), "test-span")
			span.End()
			_ = clean() // no collector is running in tests
		})
	}
}

func TestBuildResource_Precedence(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "env-service")
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "team=solidity,env=staging")

	o := &options{}
	WithServiceName("option-service")(o)
	WithServiceNamespace("custom-ns")(o)
	WithServiceVersion("1.2.3")(o)
	WithResourceAttributes(
		attribute.String("team", "compilers"),
		attribute.String("custom", "value"),
	)(o)

	res, err := buildResource(context.Background(), o)
	require.NoError(t, err)

	attrs := map[string]string{}
	iter := res.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		if kv.Value.Type() == attribute.STRING {
			attrs[string(kv.Key)] = kv.Value.AsString()
		}
	}

	require.Equal(t, "env-service", attrs[string(semconv.ServiceNameKey)])
	require.Equal(t, "staging", attrs["env"])
	require.Equal(t, "compilers", attrs["team"])
	require.Equal(t, "value", attrs["custom"])
	require.Equal(t, "custom-ns", attrs[string(semconv.ServiceNamespaceKey)])
	require.Equal(t, "1.2.3", attrs[string(semconv.ServiceVersionKey)])
}
