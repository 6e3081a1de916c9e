//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the span names, attribute keys and metric
// instruments shared by the solc packages and the public telemetry
// bootstrap packages.
package telemetry

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcDial is a package-level variable to allow test injection of a custom dialer.
var grpcDial = grpc.Dial

// telemetry service constants.
const (
	ServiceName      = "solcrun"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-solc-go"
	InstrumentName   = "trpc.solc.go"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// Span names.
const (
	SpanCompile      = "solc.compile"
	SpanRun          = "solc.run"
	SpanProbeVersion = "solc.probe_version"
)

// Span attribute keys.
const (
	AttrInvocationID = "solc.invocation_id"
	AttrExecutable   = "solc.executable"
	AttrArgs         = "solc.args"
	AttrSources      = "solc.sources"
	AttrVersion      = "solc.version"
	AttrExitCode     = "solc.exit_code"
	AttrSucceeded    = "solc.succeeded"
	AttrInterrupted  = "solc.interrupted"
	AttrStdoutBytes  = "solc.stdout_bytes"
	AttrStderrBytes  = "solc.stderr_bytes"
)

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpcDial(endpoint,
		// Note the use of insecure transport here. TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
