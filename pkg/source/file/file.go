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

package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// ModeKeyValue turns "key=value" lines into two-column rows.
const ModeKeyValue = "kv"

// Option is a functional option for configuring Parser instances.
type Option func(*Parser)

// Parser reads local text files.
type Parser struct {
	delimiter    string
	maxSize      int
	skipComments bool
	kvDelimiter  string
	vTrimChars   string
}

// WithDelimiter sets the line delimiter.
func WithDelimiter(delim string) Option {
	return func(p *Parser) {
		p.delimiter = delim
	}
}

// WithMaxSize sets the largest file the parser accepts, in bytes.
func WithMaxSize(size int) Option {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithSkipComments controls whether lines starting with '#' are dropped.
func WithSkipComments(skip bool) Option {
	return func(p *Parser) {
		p.skipComments = skip
	}
}

// WithKVDelimiter sets the key/value delimiter used by GetMap.
func WithKVDelimiter(kvDelim string) Option {
	return func(p *Parser) {
		p.kvDelimiter = kvDelim
	}
}

// WithVTrimChars sets characters trimmed around values by GetMap.
func WithVTrimChars(trimChars string) Option {
	return func(p *Parser) {
		p.vTrimChars = trimChars
	}
}

// NewParser creates a parser. Defaults: newline delimiter, 1MB limit,
// comments skipped, "=" between keys and values.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		delimiter:    "\n",
		maxSize:      1 << 20,
		skipComments: true,
		kvDelimiter:  "=",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetMap reads the file as key/value lines. Lines without a delimiter map
// to an empty value.
func (p *Parser) GetMap(path string) (map[string]string, error) {
	lines, err := p.GetLines(path)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(lines))
	for _, line := range lines {
		kv := strings.SplitN(line, p.kvDelimiter, 2)
		key := strings.TrimSpace(kv[0])
		if len(kv) != 2 {
			slog.Debug("line without value", "line", line, "delimiter", p.kvDelimiter)
			result[key] = ""
			continue
		}
		value := strings.TrimSpace(kv[1])
		if p.vTrimChars != "" {
			value = strings.Trim(value, p.vTrimChars)
		}
		result[key] = value
	}
	return result, nil
}

// GetLines reads the file and returns its non-empty lines.
func (p *Parser) GetLines(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %q: %w", path, err)
	}
	if info.Size() > int64(p.maxSize) {
		return nil, fmt.Errorf("file %q exceeds maximum size of %d bytes", path, p.maxSize)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("content of file %q is not valid UTF-8", path)
	}

	parts := strings.Split(string(b), p.delimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		if p.skipComments && strings.HasPrefix(clean, "#") {
			continue
		}
		result = append(result, clean)
	}
	return result, nil
}

// Handler serves "file" sources: one row per line, columns split by the
// source separator (whitespace when unset), or key/value rows in kv mode.
type Handler struct {
	parser *Parser
}

// NewHandler returns a file source handler.
func NewHandler(opts ...Option) *Handler {
	return &Handler{parser: NewParser(opts...)}
}

// Handle reads src.Path.
func (h *Handler) Handle(ctx context.Context, src connector.Source, _ string, _ *telemetry.State) (telemetry.Table, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.Table{}, err
	}

	if src.Mode == ModeKeyValue {
		kv, err := h.parser.GetMap(src.Path)
		if err != nil {
			return telemetry.Table{}, err
		}
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := telemetry.EmptyTable()
		for _, k := range keys {
			t.Rows = append(t.Rows, []string{k, kv[k]})
		}
		return t, nil
	}

	lines, err := h.parser.GetLines(src.Path)
	if err != nil {
		return telemetry.Table{}, err
	}
	return telemetry.TableFromText(strings.Join(lines, "\n"), "\n", src.Separator), nil
}
