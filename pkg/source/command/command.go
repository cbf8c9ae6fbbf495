// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// Runner executes a command line and returns its standard output.
type Runner func(ctx context.Context, commandLine string) ([]byte, error)

// Handler serves "commandLine" sources.
type Handler struct {
	run Runner
}

// NewHandler returns a handler. A nil run executes the command line with
// /bin/sh on the local host.
func NewHandler(run Runner) *Handler {
	if run == nil {
		run = ShellRunner
	}
	return &Handler{run: run}
}

// ShellRunner runs commandLine with "/bin/sh -c". Output beyond
// defaults.CommandMaxOutput is dropped.
func ShellRunner(ctx context.Context, commandLine string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", commandLine)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, n: defaults.CommandMaxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, n: 4096}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Handle implements source.Handler.
func (h *Handler) Handle(ctx context.Context, src connector.Source, _ string, _ *telemetry.State) (telemetry.Table, error) {
	line := strings.TrimSpace(src.CommandLine)
	if line == "" {
		return telemetry.Table{}, errors.New(errors.ErrCodeConfiguration, "commandLine source without command")
	}

	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaults.CommandTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := h.run(runCtx, line)
	if err != nil {
		code := errors.ErrCodeTransientProtocol
		if runCtx.Err() != nil && ctx.Err() == nil {
			code = errors.ErrCodeTimeout
		}
		return telemetry.Table{}, errors.WrapWithContext(code, "command failed", err,
			map[string]any{"command": line, "elapsed": time.Since(start).String()})
	}

	lines, err := Filter(strings.Split(strings.ReplaceAll(string(out), "\r\n", "\n"), "\n"),
		src.BeginAtLine, src.EndAtLine, src.Exclude, src.Keep)
	if err != nil {
		return telemetry.Table{}, err
	}
	cols, err := ParseColumns(src.SelectColumns)
	if err != nil {
		return telemetry.Table{}, err
	}

	t := telemetry.EmptyTable()
	for _, l := range lines {
		t.Rows = append(t.Rows, Select(Split(l, src.Separator), cols))
	}
	return t, nil
}

// Filter keeps the non-empty lines in [begin, end] (1-based, 0 meaning
// unbounded) that do not match exclude and do match keep.
func Filter(lines []string, begin, end int, exclude, keep string) ([]string, error) {
	excludeRe, err := compile(exclude)
	if err != nil {
		return nil, err
	}
	keepRe, err := compile(keep)
	if err != nil {
		return nil, err
	}

	var out []string
	for i, l := range lines {
		n := i + 1
		if (begin > 0 && n < begin) || (end > 0 && n > end) {
			continue
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		if excludeRe != nil && excludeRe.MatchString(l) {
			continue
		}
		if keepRe != nil && !keepRe.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Split cuts line on any character of separators, keeping empty columns.
// Empty separators split on runs of whitespace.
func Split(line, separators string) []string {
	if separators == "" {
		return strings.Fields(line)
	}
	var (
		cols []string
		cur  strings.Builder
	)
	for _, r := range line {
		if strings.ContainsRune(separators, r) {
			cols = append(cols, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	return append(cols, cur.String())
}

// ParseColumns parses a 1-based column selection such as "1,3-5". An empty
// selection returns nil, which keeps every column.
func ParseColumns(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var cols []int
	for part := range strings.SplitSeq(spec, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || from < 1 {
			return nil, errors.NewWithContext(errors.ErrCodeConfiguration, "invalid column selection",
				map[string]any{"selectColumns": spec})
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, errors.NewWithContext(errors.ErrCodeConfiguration, "invalid column range",
					map[string]any{"selectColumns": spec})
			}
		}
		for c := from; c <= to; c++ {
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// Select returns the selected 1-based columns of row. Columns past the end
// of the row are empty.
func Select(row []string, cols []int) []string {
	if cols == nil {
		return row
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if c <= len(row) {
			out[i] = row[c-1]
		}
	}
	return out
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfiguration, "invalid line filter", err,
			map[string]any{"pattern": expr})
	}
	return re, nil
}

// limitedWriter discards bytes past n without failing the command.
type limitedWriter struct {
	w io.Writer
	n int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	keep := p
	if int64(len(keep)) > l.n {
		keep = keep[:l.n]
	}
	if _, err := l.w.Write(keep); err != nil {
		return 0, err
	}
	l.n -= int64(len(keep))
	return len(p), nil
}
