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
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-solc-go/log"
	"trpc.group/trpc-go/trpc-solc-go/solc"
)

// fakeSolc answers --version and otherwise prints its last argument as the
// contract payload, failing for sources named Bad.sol.
const fakeSolc = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo 'solc, the solidity compiler commandline interface'
  echo 'Version: 0.8.21+commit.d9974bed.Linux.g++'
  exit 0
fi
for a; do last="$a"; done
case "$last" in
  */Bad.sol) echo "Error: cannot compile $(basename "$last")" 1>&2; exit 1;;
esac
echo "{\"contracts\":{\"$(basename "$last")\":{}},\"args\":\"$*\"}"
echo 'Warning: unused variable' 1>&2
`

type testApp struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	solc   string
	root   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ta := &testApp{root: t.TempDir()}
	ta.solc = filepath.Join(ta.root, "solc")
	require.NoError(t, os.WriteFile(ta.solc, []byte(fakeSolc), 0o755))
	t.Cleanup(func() { log.SetLevel(log.LevelInfo) })
	return ta
}

func (ta *testApp) run(args ...string) error {
	app := newApp(context.Background())
	app.Writer = &ta.stdout
	app.ErrWriter = &ta.stderr
	return app.Run(append([]string{"solcrun"}, args...))
}

func TestCompile(t *testing.T) {
	ta := newTestApp(t)
	err := ta.run("--solc", ta.solc, "compile",
		"--root", ta.root,
		"--allow", "lib=vendor",
		"--output", "abi", "--output", "bin",
		"A.sol")
	require.NoError(t, err)

	out := ta.stdout.String()
	assert.Contains(t, out, `"contracts":{"A.sol":{}}`)
	assert.Contains(t, out, "--combined-json abi,bin")
	assert.Contains(t, out, "lib="+filepath.Join(ta.root, "vendor"))
	assert.Equal(t, "Warning: unused variable\n", ta.stderr.String())
}

func TestCompile_Failure(t *testing.T) {
	ta := newTestApp(t)
	err := ta.run("--solc", ta.solc, "compile", "--root", ta.root, "Bad.sol")
	require.Error(t, err)
	assert.ErrorIs(t, err, solc.ErrCompileFailed)
	assert.Contains(t, ta.stderr.String(), "Error: cannot compile Bad.sol")
	assert.Empty(t, ta.stdout.String())
}

func TestCompile_Separate(t *testing.T) {
	ta := newTestApp(t)
	err := ta.run("--solc", ta.solc, "compile", "--root", ta.root, "--separate", "--jobs", "2",
		"A.sol", "B.sol", "C.sol")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(ta.stdout.String()), "\n")
	require.Len(t, lines, 3)
	for i, name := range []string{"A.sol", "B.sol", "C.sol"} {
		assert.Contains(t, lines[i], `"contracts":{"`+name+`":{}}`)
	}
}

func TestCompile_SeparateNotStarted(t *testing.T) {
	ta := newTestApp(t)
	missing := filepath.Join(ta.root, "missing")
	err := ta.run("--solc", missing, "compile", "--root", ta.root, "--separate", "A.sol", "B.sol")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "request 0 (A.sol)")
	assert.Contains(t, err.Error(), "request 1 (B.sol)")
	assert.Empty(t, ta.stdout.String())
	assert.Empty(t, ta.stderr.String())
}

func TestCompile_ConfigFile(t *testing.T) {
	ta := newTestApp(t)
	cfgPath := filepath.Join(ta.root, "solcrun.yaml")
	cfg := "root: " + ta.root + "\nsolc: " + ta.solc + "\noutputs: [metadata]\nremappings: [\"x=y\"]\nlog_level: warn\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	require.NoError(t, ta.run("--config", cfgPath, "compile", "--output", "bin-runtime", "A.sol"))
	out := ta.stdout.String()
	assert.Contains(t, out, "--combined-json bin-runtime")
	assert.Contains(t, out, "x="+filepath.Join(ta.root, "y"))
}

func TestCompile_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no sources", []string{"compile"}, errNoSources.Error()},
		{"bad output", []string{"compile", "--output", "asm", "A.sol"}, "unknown output kind"},
		{"bad remap", []string{"compile", "--allow", "novalue", "A.sol"}, "malformed remap entry"},
		{"bad log level", []string{"--log-level", "loud", "compile", "A.sol"}, "unsupported log_level"},
		{"missing config", []string{"--config", "/nonexistent/solcrun.yaml", "compile", "A.sol"}, "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			err := ta.run(append([]string{"--solc", ta.solc}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, ta.stdout.String())
		})
	}
}

func TestVersion(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.run("--solc", ta.solc, "version"))
	assert.Equal(t, ta.solc+" 0.8.21+commit.d9974bed\n", ta.stdout.String())
}

func TestVersion_NotFound(t *testing.T) {
	ta := newTestApp(t)
	err := ta.run("--solc", filepath.Join(ta.root, "missing"), "version")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
