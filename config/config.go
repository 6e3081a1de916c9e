//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the solcrun YAML configuration.
//
// Example:
//
//	root: ./contracts
//	solc: /usr/local/bin/solc
//	remappings:
//	  - "@openzeppelin/=node_modules/@openzeppelin/"
//	outputs: [abi, bin]
//	timeout: 2m
//	log_level: info
//	pool_size: 4
//	telemetry:
//	  endpoint: localhost:4317
//	  protocol: grpc
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-solc-go/log"
	"trpc.group/trpc-go/trpc-solc-go/solc"
)

// Defaults applied before the file is decoded.
const (
	DefaultRoot     = "."
	DefaultTimeout  = 2 * time.Minute
	DefaultLogLevel = log.LevelInfo
	DefaultPoolSize = 4
	DefaultProtocol = "grpc"
)

// Config is the solcrun configuration file.
type Config struct {
	// Root is the directory sources and remap targets are relative to.
	Root string `yaml:"root"`
	// Solc is the compiler executable. Empty means "solc" on $PATH.
	Solc string `yaml:"solc"`
	// Remappings are prefix=path entries.
	Remappings []string `yaml:"remappings"`
	// Outputs are combined-json kinds such as "abi" and "bin".
	Outputs []string `yaml:"outputs"`
	// Timeout bounds each compiler invocation. 0 disables it.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`
	// PoolSize is the number of concurrent invocations for multi-file runs.
	PoolSize int `yaml:"pool_size"`
	// Telemetry configures OTLP export. Export is off without an endpoint.
	Telemetry Telemetry `yaml:"telemetry"`
}

// Telemetry is the OTLP exporter configuration.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Root:     DefaultRoot,
		Outputs:  []string{string(solc.OutputABI), string(solc.OutputBinary)},
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
		PoolSize: DefaultPoolSize,
		Telemetry: Telemetry{
			Protocol: DefaultProtocol,
		},
	}
}

// Parse reads and parses a YAML configuration file.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses YAML configuration from bytes. Keys missing from data
// keep their Default values.
func ParseBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values. It is called by Parse and ParseBytes and
// should be called again after flags have been applied.
func (cfg *Config) Validate() error {
	if cfg.Root == "" {
		return fmt.Errorf("config must specify a root directory")
	}
	for _, entry := range cfg.Remappings {
		if !strings.Contains(entry, "=") {
			return fmt.Errorf("invalid remapping %q: %w", entry, solc.ErrMalformedRemapEntry)
		}
	}
	if _, err := cfg.OutputKinds(); err != nil {
		return err
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	switch cfg.LogLevel {
	case log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError, log.LevelFatal:
	default:
		return fmt.Errorf("unsupported log_level %q, must be one of: debug, info, warn, error, fatal", cfg.LogLevel)
	}
	if cfg.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1, got %d", cfg.PoolSize)
	}
	switch cfg.Telemetry.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("unsupported telemetry protocol %q, must be one of: grpc, http", cfg.Telemetry.Protocol)
	}
	return nil
}

// OutputKinds returns Outputs as solc output kinds.
func (cfg *Config) OutputKinds() ([]solc.OutputKind, error) {
	return solc.ParseOutputKinds(cfg.Outputs)
}
