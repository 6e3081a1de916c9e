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
	"path/filepath"
	"strings"

	"trpc.group/trpc-go/trpc-solc-go/log"
)

// Fixed solc flags, in the order they appear on the command line.
const (
	flagOptimize     = "--optimize"
	flagCombinedJSON = "--combined-json"
	flagAllowPaths   = "--allow-paths"
)

var (
	// ErrMalformedRemapEntry is returned when a path prefix has no '='.
	ErrMalformedRemapEntry = errors.New("solc: malformed remap entry")
	// ErrDuplicateRemapPrefix is returned when two remap entries share a prefix.
	ErrDuplicateRemapPrefix = errors.New("solc: duplicate remap prefix")
	// ErrNoSources is returned when a request names no source file.
	ErrNoSources = errors.New("solc: no source files")
	// ErrUnknownOutputKind is returned for a --combined-json token solc does not know.
	ErrUnknownOutputKind = errors.New("solc: unknown output kind")
	// ErrNoExecutable is returned when the compiler path is empty.
	ErrNoExecutable = errors.New("solc: empty compiler executable path")
)

// CommandLine is an immutable argument vector. Element 0 is the compiler
// executable.
type CommandLine struct {
	argv []string
}

// NewCommandLine returns the command line [executable, args...].
func NewCommandLine(executable string, args ...string) CommandLine {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, executable)
	argv = append(argv, args...)
	return CommandLine{argv: argv}
}

// Executable returns argv[0], or "" for the zero CommandLine.
func (c CommandLine) Executable() string {
	if len(c.argv) == 0 {
		return ""
	}
	return c.argv[0]
}

// Args returns a copy of the arguments after the executable.
func (c CommandLine) Args() []string {
	if len(c.argv) == 0 {
		return nil
	}
	return append([]string(nil), c.argv[1:]...)
}

// Argv returns a copy of the whole vector.
func (c CommandLine) Argv() []string {
	return append([]string(nil), c.argv...)
}

// Len returns the number of elements including the executable.
func (c CommandLine) Len() int {
	return len(c.argv)
}

// String joins the vector with spaces. It is meant for logs, not for a shell.
func (c CommandLine) String() string {
	return strings.Join(c.argv, " ")
}

// remap is a parsed prefix=path entry with an absolute target.
type remap struct {
	prefix string
	target string
}

func (r remap) token() string {
	return r.prefix + "=" + r.target
}

// absPath resolves p against root and makes the result absolute. A relative
// root is taken relative to the working directory.
func absPath(root, p string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(root, p))
	if err != nil {
		return "", fmt.Errorf("resolve %q against %q: %w", p, root, err)
	}
	return abs, nil
}

func parseRemaps(root string, entries []string) ([]remap, error) {
	remaps := make([]remap, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		prefix, rel, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q has no '=' separator", ErrMalformedRemapEntry, entry)
		}
		if _, dup := seen[prefix]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRemapPrefix, prefix)
		}
		seen[prefix] = struct{}{}
		target, err := absPath(root, rel)
		if err != nil {
			return nil, err
		}
		remaps = append(remaps, remap{prefix: prefix, target: target})
	}
	return remaps, nil
}

// BuildCommandLine assembles the solc invocation
//
//	executable --optimize --combined-json <kinds> --allow-paths <root,targets...> <prefix=target...> <sources...>
//
// Remap targets and sources are resolved against root. The allow-paths list
// is the absolute root followed by the remap targets in the order given.
// An empty outputs slice is accepted and yields an empty kinds argument.
//
// Errors wrap ErrNoExecutable, ErrNoSources, ErrUnknownOutputKind,
// ErrMalformedRemapEntry (an entry without '=') or ErrDuplicateRemapPrefix
// (a prefix given twice).
func BuildCommandLine(
	root string,
	sources []string,
	pathPrefixes []string,
	outputs []OutputKind,
	executable string,
) (CommandLine, error) {
	if executable == "" {
		return CommandLine{}, ErrNoExecutable
	}
	if len(sources) == 0 {
		return CommandLine{}, ErrNoSources
	}
	for _, k := range outputs {
		if !k.Valid() {
			return CommandLine{}, fmt.Errorf("%w: %q", ErrUnknownOutputKind, string(k))
		}
	}
	if len(outputs) == 0 {
		log.Warnf("solc: no output kinds requested, --combined-json will be empty")
	}

	remaps, err := parseRemaps(root, pathPrefixes)
	if err != nil {
		return CommandLine{}, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return CommandLine{}, fmt.Errorf("resolve root %q: %w", root, err)
	}

	allow := make([]string, 0, len(remaps)+1)
	allow = append(allow, absRoot)
	for _, r := range remaps {
		allow = append(allow, r.target)
	}

	argv := make([]string, 0, 6+len(remaps)+len(sources))
	argv = append(argv,
		executable,
		flagOptimize,
		flagCombinedJSON, joinOutputKinds(outputs),
		flagAllowPaths, strings.Join(allow, ","),
	)
	for _, r := range remaps {
		argv = append(argv, r.token())
	}
	for _, src := range sources {
		abs, err := absPath(root, src)
		if err != nil {
			return CommandLine{}, err
		}
		argv = append(argv, abs)
	}
	return CommandLine{argv: argv}, nil
}
