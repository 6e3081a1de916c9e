//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package solc invokes the Solidity compiler binary and collects its output.
//
// BuildCommandLine produces the solc argument vector, Runner executes it while
// draining stdout and stderr concurrently, and Compiler ties both to a
// Resolver that chooses the executable. Compiler invocations are independent
// and may run concurrently; CompileAll does so on a worker pool.
package solc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	itelemetry "trpc.group/trpc-go/trpc-solc-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-solc-go/log"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/trace"
)

const defaultPoolSize = 4

// ErrNilResolver is returned by Compile when the Compiler has no Resolver.
var ErrNilResolver = errors.New("solc: nil resolver")

// Executable is a compiler binary chosen by a Resolver.
type Executable struct {
	// Path is the file to execute.
	Path string
	// Version is the compiler release, e.g. "0.8.19+commit.7dd6d404".
	// It may be empty when the resolver does not know it.
	Version string
}

// Resolver picks the compiler for a source file. sourcePath is absolute.
type Resolver interface {
	Resolve(ctx context.Context, sourcePath string) (Executable, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, sourcePath string) (Executable, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, sourcePath string) (Executable, error) {
	return f(ctx, sourcePath)
}

// Request describes one compiler invocation.
type Request struct {
	// Root is the base directory for Sources and PathPrefixes targets.
	Root string
	// Sources are passed to the compiler in order. Only the first one is
	// handed to the Resolver.
	Sources []string
	// PathPrefixes are prefix=path import remappings.
	PathPrefixes []string
	// Outputs are the combined-json artifacts to request.
	Outputs []OutputKind
}

// Compiler runs solc for Requests.
type Compiler struct {
	resolver    Resolver
	runner      *Runner
	poolSize    int
	lastVersion atomic.Pointer[string]
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRunner sets the Runner used for invocations.
func WithRunner(r *Runner) Option {
	return func(c *Compiler) {
		c.runner = r
	}
}

// WithPoolSize sets how many requests CompileAll runs at once.
func WithPoolSize(n int) Option {
	return func(c *Compiler) {
		c.poolSize = n
	}
}

// New creates a Compiler that asks resolver for the executable.
func New(resolver Resolver, opts ...Option) *Compiler {
	c := &Compiler{
		resolver: resolver,
		poolSize: defaultPoolSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = NewRunner()
	}
	if c.poolSize <= 0 {
		c.poolSize = defaultPoolSize
	}
	return c
}

// Compile resolves the compiler for req, builds its command line and runs it.
//
// The returned error covers only what happens before the process is started:
// resolution and argument validation. Everything after that is reported in
// the Result, including a compilation that failed.
func (c *Compiler) Compile(ctx context.Context, req Request) (Result, error) {
	id := uuid.NewString()
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanCompile)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.AttrInvocationID, id),
		attribute.StringSlice(itelemetry.AttrSources, req.Sources),
	)

	cl, exe, err := c.prepare(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WarnfContext(ctx, "solc[%s]: %v", id, err)
		return Result{}, err
	}
	span.SetAttributes(attribute.String(itelemetry.AttrVersion, exe.Version))
	if exe.Version != "" {
		c.lastVersion.Store(&exe.Version)
	}

	log.DebugfContext(ctx, "solc[%s]: compiling %d source(s) with %s", id, len(req.Sources), exe.Path)
	res := c.runner.Run(ctx, cl)
	res.Version = exe.Version
	if !res.Succeeded {
		span.SetStatus(codes.Error, "compilation failed")
	}
	return res, nil
}

func (c *Compiler) prepare(ctx context.Context, req Request) (CommandLine, Executable, error) {
	if len(req.Sources) == 0 {
		return CommandLine{}, Executable{}, ErrNoSources
	}
	if c.resolver == nil {
		return CommandLine{}, Executable{}, ErrNilResolver
	}
	first, err := absPath(req.Root, req.Sources[0])
	if err != nil {
		return CommandLine{}, Executable{}, err
	}
	exe, err := c.resolver.Resolve(ctx, first)
	if err != nil {
		return CommandLine{}, Executable{}, fmt.Errorf("resolve compiler for %s: %w", first, err)
	}
	cl, err := BuildCommandLine(req.Root, req.Sources, req.PathPrefixes, req.Outputs, exe.Path)
	if err != nil {
		return CommandLine{}, Executable{}, err
	}
	return cl, exe, nil
}

// LastVersion returns the version of the most recently resolved compiler,
// or "" if none was known. Under concurrent Compile calls any of the
// in-flight versions may be returned; Result.Version is exact.
func (c *Compiler) LastVersion() string {
	if v := c.lastVersion.Load(); v != nil {
		return *v
	}
	return ""
}
