//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package resolver provides solc.Resolver implementations that locate an
// already installed compiler. Installing compilers is out of its scope.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	itelemetry "trpc.group/trpc-go/trpc-solc-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-solc-go/log"
	"trpc.group/trpc-go/trpc-solc-go/solc"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/trace"
)

const (
	defaultName   = "solc"
	versionFlag   = "--version"
	versionPrefix = "Version:"
)

// ErrNoVersion is returned when --version output has no version line.
var ErrNoVersion = errors.New("resolver: no version in compiler output")

var versionRegexp = regexp.MustCompile(`Version:\s*([0-9]+\.[0-9]+\.[0-9]+(?:\+commit\.[0-9a-f]+)?)`)

// Static always resolves to the same executable.
type Static struct {
	Path    string
	Version string
}

// Resolve returns s as an Executable.
func (s Static) Resolve(context.Context, string) (solc.Executable, error) {
	if s.Path == "" {
		return solc.Executable{}, solc.ErrNoExecutable
	}
	return solc.Executable{Path: s.Path, Version: s.Version}, nil
}

// PathResolver finds the compiler on $PATH, or at an explicit path, and
// probes its version once. The result is reused for every source file.
type PathResolver struct {
	name   string
	runner *solc.Runner
	probe  bool

	mu     sync.Mutex
	cached *solc.Executable
}

// Option configures a PathResolver.
type Option func(*PathResolver)

// WithName sets the executable name or path to look up. Default "solc".
func WithName(name string) Option {
	return func(p *PathResolver) {
		p.name = name
	}
}

// WithRunner sets the runner used for the version probe.
func WithRunner(r *solc.Runner) Option {
	return func(p *PathResolver) {
		p.runner = r
	}
}

// WithVersionProbe enables or disables running "<solc> --version".
// It is enabled by default.
func WithVersionProbe(enabled bool) Option {
	return func(p *PathResolver) {
		p.probe = enabled
	}
}

// NewPathResolver creates a PathResolver.
func NewPathResolver(opts ...Option) *PathResolver {
	p := &PathResolver{name: defaultName, probe: true}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = solc.NewRunner()
	}
	return p
}

// Resolve implements solc.Resolver. A failed lookup is not cached.
func (p *PathResolver) Resolve(ctx context.Context, _ string) (solc.Executable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return *p.cached, nil
	}
	path, err := exec.LookPath(p.name)
	if err != nil {
		return solc.Executable{}, fmt.Errorf("resolver: look up %q: %w", p.name, err)
	}
	exe := solc.Executable{Path: path}
	if p.probe {
		v, err := ProbeVersion(ctx, p.runner, path)
		if err != nil {
			return solc.Executable{}, err
		}
		exe.Version = v
	}
	log.DebugfContext(ctx, "resolver: using %s (version %q)", exe.Path, exe.Version)
	p.cached = &exe
	return exe, nil
}

// ProbeVersion runs "<path> --version" and returns the release token, for
// example "0.8.19+commit.7dd6d404".
func ProbeVersion(ctx context.Context, runner *solc.Runner, path string) (string, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanProbeVersion)
	defer span.End()
	span.SetAttributes(attribute.String(itelemetry.AttrExecutable, path))

	res := runner.Run(ctx, solc.NewCommandLine(path, versionFlag))
	if err := res.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("resolver: probe %s: %w", path, err)
	}
	v, err := ParseVersion(res.Stdout)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("resolver: probe %s: %w", path, err)
	}
	span.SetAttributes(attribute.String(itelemetry.AttrVersion, v))
	return v, nil
}

// ParseVersion extracts the release token from solc --version output.
func ParseVersion(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, versionPrefix) {
			continue
		}
		if m := versionRegexp.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNoVersion
}
