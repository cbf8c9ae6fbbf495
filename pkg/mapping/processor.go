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

package mapping

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

type entry struct {
	key  string
	node Node
}

// Compiled is a Mapping whose expressions have been parsed.
type Compiled struct {
	source     string
	attributes []entry
	metrics    []entry
	legacy     []entry
}

// Source returns the reference of the table the mapping iterates.
func (c *Compiled) Source() string {
	return c.source
}

var cache sync.Map // *connector.Mapping -> *Compiled

// Compile parses every expression of m. Connectors are immutable, so the
// result is cached per Mapping.
func Compile(m *connector.Mapping) (*Compiled, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "no mapping")
	}
	if c, ok := cache.Load(m); ok {
		return c.(*Compiled), nil
	}

	c := &Compiled{source: m.Source}
	var errs []error
	compile := func(exprs map[string]string) []entry {
		keys := make([]string, 0, len(exprs))
		for k := range exprs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			node, err := Parse(exprs[k])
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
				continue
			}
			out = append(out, entry{key: k, node: node})
		}
		return out
	}
	c.attributes = compile(m.Attributes)
	c.metrics = compile(m.Metrics)
	c.legacy = compile(m.LegacyTextParameters)
	if len(errs) > 0 {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, "invalid mapping expression", stderrors.Join(errs...))
	}

	actual, _ := cache.LoadOrStore(m, c)
	return actual.(*Compiled), nil
}

// Processor evaluates a compiled mapping against one row.
type Processor struct {
	compiled    *Compiled
	row         []string
	collectTime time.Time
}

// NewProcessor binds a compiled mapping to a row.
func NewProcessor(c *Compiled, row []string, collectTime time.Time) *Processor {
	return &Processor{compiled: c, row: row, collectTime: collectTime}
}

// Attributes evaluates the context-free attribute expressions.
func (p *Processor) Attributes() map[string]string {
	return p.eval(p.compiled.attributes, sectionAttribute, nil)
}

// Metrics evaluates the context-free metric expressions.
func (p *Processor) Metrics() map[string]string {
	return p.eval(p.compiled.metrics, sectionMetric, nil)
}

// LegacyTextParameters evaluates the context-free legacy text expressions.
func (p *Processor) LegacyTextParameters() map[string]string {
	return p.eval(p.compiled.legacy, sectionLegacy, nil)
}

// ContextAttributes evaluates the attribute expressions that need m.
func (p *Processor) ContextAttributes(m *telemetry.Monitor) map[string]string {
	return p.eval(p.compiled.attributes, sectionAttribute, m)
}

// ContextMetrics evaluates the metric expressions that need m.
func (p *Processor) ContextMetrics(m *telemetry.Monitor) map[string]string {
	return p.eval(p.compiled.metrics, sectionMetric, m)
}

// ContextLegacyTextParameters evaluates the legacy text expressions that need m.
func (p *Processor) ContextLegacyTextParameters(m *telemetry.Monitor) map[string]string {
	return p.eval(p.compiled.legacy, sectionLegacy, m)
}

// eval runs the context-free entries when m is nil and the context entries
// otherwise. Blank results are dropped.
func (p *Processor) eval(entries []entry, sec section, m *telemetry.Monitor) map[string]string {
	out := make(map[string]string, len(entries))
	wantContext := m != nil
	for _, en := range entries {
		if en.node.UsesContext() != wantContext {
			continue
		}
		e := &env{row: p.row, monitor: m, collectTime: p.collectTime, section: sec, key: en.key}
		v, ok := en.node.eval(e)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		out[en.key] = v
	}
	return out
}

// Merge returns base overlaid with over.
func Merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
