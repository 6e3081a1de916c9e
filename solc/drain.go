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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// lineSeparator joins the lines collected from a stream.
const lineSeparator = "\n"

// drain owns the read end of one pipe for the lifetime of the child and
// accumulates everything written to it.
//
// content and err are written only by run and must be read after the
// goroutine running it has been joined.
type drain struct {
	name    string
	r       io.ReadCloser
	bytes   int
	content string
	err     error
}

func newDrain(name string, r io.ReadCloser) *drain {
	return &drain{name: name, r: r}
}

// run reads until EOF and closes the stream. Lines are joined with
// lineSeparator; "\n" and "\r\n" terminators are dropped, so a trailing
// newline does not produce a trailing separator. A read error keeps the
// lines collected so far and is recorded in err.
//
// bufio.Reader is used rather than bufio.Scanner: combined-json output is
// usually a single line far longer than Scanner's token limit.
func (d *drain) run() error {
	defer d.r.Close()

	br := bufio.NewReader(d.r)
	var sb strings.Builder
	first := true
	for {
		line, err := br.ReadString('\n')
		d.bytes += len(line)
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if !first {
				sb.WriteString(lineSeparator)
			}
			sb.WriteString(line)
			first = false
		}
		if err != nil {
			d.content = sb.String()
			if errors.Is(err, io.EOF) {
				return nil
			}
			d.err = fmt.Errorf("read %s: %w", d.name, err)
			return d.err
		}
	}
}
