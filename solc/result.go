//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

package solc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrCompileFailed is wrapped by Result.Err when the compiler ran and failed.
	ErrCompileFailed = errors.New("solc: compilation failed")
	// ErrInterrupted is wrapped by Result.Err when the wait for the compiler
	// was cut short by the context.
	ErrInterrupted = errors.New("solc: compilation interrupted")
)

// exitCodeUnknown is reported when the child never produced an exit status.
const exitCodeUnknown = -1

// Result is the outcome of one compiler invocation.
type Result struct {
	// Succeeded is true when the compiler exited with status 0 and both
	// output streams were read to the end.
	Succeeded bool
	// Stdout holds the compiler's standard output. On success this is the
	// combined-json document.
	Stdout string
	// Stderr holds the compiler's diagnostics, or a description of the
	// launch, wait or read failure.
	Stderr string
	// ExitCode is the child's exit status, or -1 if it has none.
	ExitCode int
	// Duration is the wall time from launch to the result being built.
	Duration time.Duration
	// Interrupted reports that ctx ended while waiting for the child.
	Interrupted bool
	// Version is the compiler release that produced this result, if known.
	Version string
}

// Err converts a failed result into an error carrying Stderr.
// It returns nil when the result succeeded.
func (r Result) Err() error {
	if r.Succeeded {
		return nil
	}
	diag := strings.TrimSpace(r.Stderr)
	if r.Interrupted {
		return fmt.Errorf("%w: %s", ErrInterrupted, diag)
	}
	if diag == "" {
		return fmt.Errorf("%w: exit code %d", ErrCompileFailed, r.ExitCode)
	}
	return fmt.Errorf("%w (exit code %d): %s", ErrCompileFailed, r.ExitCode, diag)
}

func launchFailure(cl CommandLine, err error, started time.Time) Result {
	return Result{
		Stderr:   fmt.Sprintf("failed to start %s: %v", cl.Executable(), err),
		ExitCode: exitCodeUnknown,
		Duration: time.Since(started),
	}
}

func interrupted(cl CommandLine, cause error, exitCode int, started time.Time) Result {
	return Result{
		Stderr:      fmt.Sprintf("interrupted while waiting for %s: %v", cl.Executable(), cause),
		ExitCode:    exitCode,
		Duration:    time.Since(started),
		Interrupted: true,
	}
}
