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
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	itelemetry "trpc.group/trpc-go/trpc-solc-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-solc-go/log"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/semconv/metrics"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/trace"
)

const (
	defaultWaitDelay = 2 * time.Second

	// drainFailureMarker prefixes the line appended to Stderr when an output
	// stream could not be read to the end.
	drainFailureMarker = "solc: output incomplete: "
)

// ErrStreamsLeftOpen is reported when the compiler exited but something it
// spawned kept an output stream open past the wait delay.
var ErrStreamsLeftOpen = errors.New("output streams still open after exit")

// Runner launches a command line and collects both of its output streams.
// A Runner holds no per-invocation state and may be shared by goroutines.
type Runner struct {
	timeout   time.Duration
	dir       string
	env       []string
	waitDelay time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds each invocation. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithDir sets the working directory of the child.
func WithDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithEnv adds KEY=VALUE pairs on top of the parent environment.
func WithEnv(kv ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// WithWaitDelay sets the grace period used on both ends of the child's life:
// after an interrupt the child has this long to exit before it is killed, and
// after it exits its output streams have this long to reach EOF before they
// are closed. Zero disables both bounds.
func WithWaitDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.waitDelay = d
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{waitDelay: defaultWaitDelay}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cl and returns once the child has exited and both of its
// streams have been drained. It never returns an error: launch, wait and read
// failures are all described by the Result.
//
// If ctx ends first the child is stopped, Result.Interrupted is set, and
// ctx.Err() remains set for the caller to observe.
func (r *Runner) Run(ctx context.Context, cl CommandLine) Result {
	started := time.Now()
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanRun)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.AttrExecutable, cl.Executable()),
		attribute.StringSlice(itelemetry.AttrArgs, cl.Args()),
	)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, st := r.run(runCtx, cl, started)

	span.SetAttributes(
		attribute.Int(itelemetry.AttrExitCode, res.ExitCode),
		attribute.Bool(itelemetry.AttrSucceeded, res.Succeeded),
		attribute.Bool(itelemetry.AttrInterrupted, res.Interrupted),
		attribute.Int(itelemetry.AttrStdoutBytes, st.stdoutBytes),
		attribute.Int(itelemetry.AttrStderrBytes, st.stderrBytes),
	)
	outcome := outcomeOf(res, st)
	if outcome != metrics.OutcomeSucceeded {
		span.SetStatus(codes.Error, outcome)
	}
	itelemetry.RecordCompile(ctx, itelemetry.CompileAttributes{
		Outcome:     outcome,
		Duration:    res.Duration,
		StdoutBytes: st.stdoutBytes,
		StderrBytes: st.stderrBytes,
	})

	switch {
	case res.Succeeded:
		log.DebugfContext(ctx, "solc: %s exited 0 in %s", cl.Executable(), res.Duration)
	case res.Interrupted:
		log.WarnfContext(ctx, "solc: %s interrupted after %s: %v", cl.Executable(), res.Duration, runCtx.Err())
	default:
		log.WarnfContext(ctx, "solc: %s failed with exit code %d in %s", cl.Executable(), res.ExitCode, res.Duration)
	}
	return res
}

// runStats carries what Run reports to telemetry but keeps out of Result.
type runStats struct {
	launched    bool
	stdoutBytes int
	stderrBytes int
}

func outcomeOf(res Result, st runStats) string {
	switch {
	case res.Succeeded:
		return metrics.OutcomeSucceeded
	case res.Interrupted:
		return metrics.OutcomeInterrupted
	case !st.launched:
		return metrics.OutcomeLaunchError
	default:
		return metrics.OutcomeFailed
	}
}

func (r *Runner) command(ctx context.Context, cl CommandLine, stdout, stderr *os.File) *exec.Cmd {
	cmd := exec.CommandContext(ctx, cl.Executable(), cl.Args()...) //nolint:gosec
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	// The write ends are *os.File, so the child writes straight into the
	// pipes and exec starts no copying goroutines of its own.
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if r.waitDelay > 0 {
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
		cmd.WaitDelay = r.waitDelay
	}
	return cmd
}

func (r *Runner) run(ctx context.Context, cl CommandLine, started time.Time) (Result, runStats) {
	var st runStats
	if cl.Executable() == "" {
		return launchFailure(cl, ErrNoExecutable, started), st
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return launchFailure(cl, fmt.Errorf("create stdout pipe: %w", err), started), st
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return launchFailure(cl, fmt.Errorf("create stderr pipe: %w", err), started), st
	}

	cmd := r.command(ctx, cl, stdoutW, stderrW)
	log.DebugfContext(ctx, "solc: starting %s", cl)
	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		if ctx.Err() != nil {
			return interrupted(cl, ctx.Err(), exitCodeUnknown, started), st
		}
		return launchFailure(cl, err, started), st
	}
	st.launched = true
	// Only the child may hold the write ends now, so EOF means it is done.
	closeAll(stdoutW, stderrW)

	outDrain := newDrain(metrics.StreamStdout, stdoutR)
	errDrain := newDrain(metrics.StreamStderr, stderrR)
	var g errgroup.Group
	g.Go(outDrain.run)
	g.Go(errDrain.run)
	drained := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(drained)
	}()
	// abort unblocks drains stuck on a stream held open by a descendant of
	// the child and waits for them to return.
	abort := func() {
		closeAll(stdoutR, stderrR)
		<-drained
	}

	waitErr := cmd.Wait()
	exitCode := exitCodeOf(cmd, waitErr)
	if stoppedByContext(ctx, waitErr) {
		abort()
		st.stdoutBytes, st.stderrBytes = outDrain.bytes, errDrain.bytes
		return interrupted(cl, ctx.Err(), exitCode, started), st
	}

	var errs *multierror.Error
	var grace <-chan time.Time
	if r.waitDelay > 0 {
		t := time.NewTimer(r.waitDelay)
		defer t.Stop()
		grace = t.C
	}
	select {
	case <-drained:
		errs = multierror.Append(errs, outDrain.err, errDrain.err)
	case <-ctx.Done():
		select {
		case <-drained:
			errs = multierror.Append(errs, outDrain.err, errDrain.err)
		default:
			abort()
			st.stdoutBytes, st.stderrBytes = outDrain.bytes, errDrain.bytes
			return interrupted(cl, ctx.Err(), exitCode, started), st
		}
	case <-grace:
		// The read errors are only the close from abort.
		abort()
		errs = multierror.Append(errs, fmt.Errorf("%w: %s exited %s ago", ErrStreamsLeftOpen, cl.Executable(), r.waitDelay))
	}
	st.stdoutBytes, st.stderrBytes = outDrain.bytes, errDrain.bytes

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		errs = multierror.Append(errs, fmt.Errorf("wait %s: %w", cl.Executable(), waitErr))
	}

	res := Result{
		Stdout:   outDrain.content,
		Stderr:   errDrain.content,
		ExitCode: exitCode,
	}
	if err := errs.ErrorOrNil(); err != nil {
		errs.ErrorFormat = formatInline
		res.Stderr = appendLine(res.Stderr, drainFailureMarker+errs.Error())
	}
	res.Succeeded = waitErr == nil && exitCode == 0 && errs.ErrorOrNil() == nil
	res.Duration = time.Since(started)
	return res, st
}

// stoppedByContext reports whether Wait ended because ctx cancelled the
// child. exec only reports ctx.Err() when the cancel signal reached a running
// process; a child that exited on its own keeps its own status even if ctx
// ends afterwards.
func stoppedByContext(ctx context.Context, waitErr error) bool {
	ctxErr := ctx.Err()
	return ctxErr != nil && errors.Is(waitErr, ctxErr)
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return exitCodeUnknown
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + lineSeparator + line
}

func formatInline(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
