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
	"fmt"
	"strings"
)

// OutputKind is an artifact kind requested through --combined-json.
// Its value is the literal token solc expects.
type OutputKind string

// Output kinds understood by solc --combined-json.
const (
	OutputBinary        OutputKind = "bin"
	OutputBinaryRuntime OutputKind = "bin-runtime"
	OutputABI           OutputKind = "abi"
	OutputMetadata      OutputKind = "metadata"
)

// OutputKinds lists every supported kind.
var OutputKinds = []OutputKind{
	OutputBinary,
	OutputBinaryRuntime,
	OutputABI,
	OutputMetadata,
}

// String returns the solc token.
func (k OutputKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the supported kinds.
func (k OutputKind) Valid() bool {
	switch k {
	case OutputBinary, OutputBinaryRuntime, OutputABI, OutputMetadata:
		return true
	default:
		return false
	}
}

// ParseOutputKind maps a solc token such as "abi" to its OutputKind.
func ParseOutputKind(s string) (OutputKind, error) {
	k := OutputKind(strings.TrimSpace(s))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOutputKind, s)
	}
	return k, nil
}

// ParseOutputKinds parses every token, failing on the first unknown one.
func ParseOutputKinds(tokens []string) ([]OutputKind, error) {
	kinds := make([]OutputKind, 0, len(tokens))
	for _, tok := range tokens {
		k, err := ParseOutputKind(tok)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func joinOutputKinds(kinds []OutputKind) string {
	tokens := make([]string, len(kinds))
	for i, k := range kinds {
		tokens[i] = k.String()
	}
	return strings.Join(tokens, ",")
}
