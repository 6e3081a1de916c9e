//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package metrics defines metric and meter name constants.
package metrics

const (
	// KeyMetricName represents the name of the metric.
	KeyMetricName = "metric.name"
	// KeySolcOutcome is the attribute describing how an invocation ended.
	KeySolcOutcome = "solc.outcome"
	// KeySolcStream names the output stream a size was measured on.
	KeySolcStream = "solc.stream"

	// Outcome values for KeySolcOutcome.
	OutcomeSucceeded   = "succeeded"
	OutcomeFailed      = "failed"
	OutcomeLaunchError = "launch_error"
	OutcomeInterrupted = "interrupted"

	// Stream values for KeySolcStream.
	StreamStdout = "stdout"
	StreamStderr = "stderr"

	// MetricSolcCompileRequestCnt counts compiler invocations.
	MetricSolcCompileRequestCnt = "solc.compile.request_cnt"
	// MetricSolcCompileDuration is the wall time of one invocation in seconds.
	MetricSolcCompileDuration = "solc.compile.duration"
	// MetricSolcCompileOutputSize is the number of bytes collected per stream.
	MetricSolcCompileOutputSize = "solc.compile.output.size"

	// MeterNameCompile is the meter name for compiler invocations.
	MeterNameCompile = "trpc_solc_go.internal.compile"
)
