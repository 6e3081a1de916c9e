//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli"

	"trpc.group/trpc-go/trpc-solc-go/config"
	itelemetry "trpc.group/trpc-go/trpc-solc-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-solc-go/log"
	"trpc.group/trpc-go/trpc-solc-go/solc"
	"trpc.group/trpc-go/trpc-solc-go/solc/resolver"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-solc-go/telemetry/trace"
)

// Version of solcrun being run.
const Version = itelemetry.ServiceVersion

const (
	flagConfig       = "config"
	flagLogLevel     = "log-level"
	flagSolc         = "solc"
	flagOTELEndpoint = "otel-endpoint"
	flagOTELProtocol = "otel-protocol"

	flagRoot     = "root"
	flagAllow    = "allow"
	flagOutput   = "output"
	flagTimeout  = "timeout"
	flagJobs     = "jobs"
	flagSeparate = "separate"
)

var errNoSources = errors.New("no source files given")

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "solcrun"
	app.Usage = "run the Solidity compiler and collect its combined-json output"
	app.Version = Version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: flagConfig + ", c", Usage: "YAML configuration `FILE`"},
		cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn, error or fatal"},
		cli.StringFlag{Name: flagSolc, Usage: "compiler executable name or `PATH` (default: solc on $PATH)"},
		cli.StringFlag{Name: flagOTELEndpoint, Usage: "OTLP collector `HOST:PORT`; export is disabled when empty"},
		cli.StringFlag{Name: flagOTELProtocol, Usage: "OTLP protocol: grpc or http"},
	}
	app.Commands = []cli.Command{
		{
			Name:      "compile",
			Usage:     "compile Solidity sources",
			ArgsUsage: "SOURCE...",
			Flags: []cli.Flag{
				cli.StringFlag{Name: flagRoot, Usage: "directory sources and remappings are relative to"},
				cli.StringSliceFlag{Name: flagAllow, Usage: "import remapping `PREFIX=PATH`, repeatable"},
				cli.StringSliceFlag{Name: flagOutput, Usage: "combined-json `KIND` (abi, bin, bin-runtime, metadata), repeatable"},
				cli.DurationFlag{Name: flagTimeout, Usage: "bound on each compiler invocation, 0 for none"},
				cli.IntFlag{Name: flagJobs, Usage: "concurrent compiler invocations with --separate"},
				cli.BoolFlag{Name: flagSeparate, Usage: "compile every source in its own invocation"},
			},
			Action: func(c *cli.Context) error {
				return runCompile(ctx, c)
			},
		},
		{
			Name:  "version",
			Usage: "print the resolved compiler path and version",
			Action: func(c *cli.Context) error {
				return runVersion(ctx, c)
			},
		},
	}
	return app
}

// loadConfig reads --config, if any, and applies the global flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.GlobalString(flagConfig); path != "" {
		var err error
		if cfg, err = config.Parse(path); err != nil {
			return nil, err
		}
	}
	if c.GlobalIsSet(flagLogLevel) {
		cfg.LogLevel = c.GlobalString(flagLogLevel)
	}
	if c.GlobalIsSet(flagSolc) {
		cfg.Solc = c.GlobalString(flagSolc)
	}
	if c.GlobalIsSet(flagOTELEndpoint) {
		cfg.Telemetry.Endpoint = c.GlobalString(flagOTELEndpoint)
	}
	if c.GlobalIsSet(flagOTELProtocol) {
		cfg.Telemetry.Protocol = c.GlobalString(flagOTELProtocol)
	}
	return cfg, nil
}

func applyCompileFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagRoot) {
		cfg.Root = c.String(flagRoot)
	}
	if c.IsSet(flagAllow) {
		cfg.Remappings = c.StringSlice(flagAllow)
	}
	if c.IsSet(flagOutput) {
		cfg.Outputs = c.StringSlice(flagOutput)
	}
	if c.IsSet(flagTimeout) {
		cfg.Timeout = c.Duration(flagTimeout)
	}
	if c.IsSet(flagJobs) {
		cfg.PoolSize = c.Int(flagJobs)
	}
}

// setup applies the log level and starts telemetry export. The returned
// function flushes the exporters.
func setup(ctx context.Context, cfg *config.Config) (func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.Telemetry.Endpoint == "" {
		return func() {}, nil
	}

	stopTrace, err := trace.Start(ctx,
		trace.WithEndpoint(cfg.Telemetry.Endpoint),
		trace.WithProtocol(cfg.Telemetry.Protocol),
	)
	if err != nil {
		return nil, fmt.Errorf("start tracing: %w", err)
	}
	stopMetric, err := metric.Start(ctx,
		metric.WithEndpoint(cfg.Telemetry.Endpoint),
		metric.WithProtocol(cfg.Telemetry.Protocol),
	)
	if err != nil {
		_ = stopTrace()
		return nil, fmt.Errorf("start metrics: %w", err)
	}
	return func() {
		if err := stopMetric(); err != nil {
			log.Warnf("solcrun: flush metrics: %v", err)
		}
		if err := stopTrace(); err != nil {
			log.Warnf("solcrun: flush traces: %v", err)
		}
	}, nil
}

func newCompiler(cfg *config.Config) *solc.Compiler {
	runner := solc.NewRunner(solc.WithTimeout(cfg.Timeout))
	opts := []resolver.Option{resolver.WithRunner(solc.NewRunner())}
	if cfg.Solc != "" {
		opts = append(opts, resolver.WithName(cfg.Solc))
	}
	return solc.New(resolver.NewPathResolver(opts...),
		solc.WithRunner(runner),
		solc.WithPoolSize(cfg.PoolSize),
	)
}

func runCompile(ctx context.Context, c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyCompileFlags(c, cfg)
	stop, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()

	sources := []string(c.Args())
	if len(sources) == 0 {
		return errNoSources
	}
	outputs, err := cfg.OutputKinds()
	if err != nil {
		return err
	}

	compiler := newCompiler(cfg)
	var (
		results  []solc.Result
		batchErr error
	)
	if c.Bool(flagSeparate) {
		reqs := make([]solc.Request, 0, len(sources))
		for _, src := range sources {
			reqs = append(reqs, solc.Request{
				Root:         cfg.Root,
				Sources:      []string{src},
				PathPrefixes: cfg.Remappings,
				Outputs:      outputs,
			})
		}
		results, batchErr = compiler.CompileAll(ctx, reqs)
	} else {
		res, err := compiler.Compile(ctx, solc.Request{
			Root:         cfg.Root,
			Sources:      sources,
			PathPrefixes: cfg.Remappings,
			Outputs:      outputs,
		})
		if err != nil {
			return err
		}
		results = []solc.Result{res}
	}

	// Requests that never started are reported once, through batchErr.
	notStarted := make(map[int]bool)
	for _, re := range solc.RequestErrors(batchErr) {
		notStarted[re.Index] = true
	}
	var failed error
	for i, res := range results {
		if notStarted[i] {
			continue
		}
		writeStream(c.App.Writer, res.Stdout)
		writeStream(c.App.ErrWriter, res.Stderr)
		if err := res.Err(); err != nil && failed == nil {
			failed = err
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", solc.ErrInterrupted, err)
	}
	if batchErr != nil {
		return batchErr
	}
	if failed != nil {
		return failed
	}
	log.Debugf("solcrun: compiled %d source(s) with solc %s", len(sources), compiler.LastVersion())
	return nil
}

func runVersion(ctx context.Context, c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	stop, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer stop()

	opts := []resolver.Option{}
	if cfg.Solc != "" {
		opts = append(opts, resolver.WithName(cfg.Solc))
	}
	exe, err := resolver.NewPathResolver(opts...).Resolve(ctx, "")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s %s\n", exe.Path, exe.Version)
	return err
}

func writeStream(w io.Writer, s string) {
	if s == "" {
		return
	}
	fmt.Fprintln(w, s)
}
