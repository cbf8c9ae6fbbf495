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
	"fmt"
	"strings"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// Node is a parsed mapping expression.
type Node interface {
	// UsesContext reports whether evaluation needs the resolved monitor.
	UsesContext() bool
	String() string
	eval(e *env) (string, bool)
}

type section string

const (
	sectionAttribute section = "attribute"
	sectionMetric    section = "metric"
	sectionLegacy    section = "legacy"
)

// env is the evaluation input of one mapping entry.
type env struct {
	row         []string
	monitor     *telemetry.Monitor
	collectTime time.Time
	section     section
	key         string
}

func (e *env) memoKey(fn string) string {
	return fn + ":" + string(e.section) + ":" + e.key
}

type literal struct {
	text string
}

func (l literal) UsesContext() bool         { return false }
func (l literal) String() string            { return l.text }
func (l literal) eval(*env) (string, bool) { return l.text, true }

// column is a 1-based reference to a row column.
type column struct {
	index int
}

func (c column) UsesContext() bool { return false }
func (c column) String() string    { return fmt.Sprintf("$%d", c.index) }

func (c column) eval(e *env) (string, bool) {
	if c.index < 1 || c.index > len(e.row) {
		return "", false
	}
	return e.row[c.index-1], true
}

// template concatenates literals and columns. Any missing column makes the
// whole template absent.
type template struct {
	parts []Node
}

func (t template) UsesContext() bool {
	for _, p := range t.parts {
		if p.UsesContext() {
			return true
		}
	}
	return false
}

func (t template) String() string {
	var b strings.Builder
	for _, p := range t.parts {
		b.WriteString(p.String())
	}
	return b.String()
}

func (t template) eval(e *env) (string, bool) {
	var b strings.Builder
	for _, p := range t.parts {
		v, ok := p.eval(e)
		if !ok {
			return "", false
		}
		b.WriteString(v)
	}
	return b.String(), true
}

type call struct {
	fn   *function
	args []Node
}

func (c call) UsesContext() bool {
	if c.fn.context {
		return true
	}
	for _, a := range c.args {
		if a.UsesContext() {
			return true
		}
	}
	return false
}

func (c call) String() string {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = a.String()
	}
	return c.fn.name + "(" + strings.Join(args, ", ") + ")"
}

func (c call) eval(e *env) (string, bool) {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		v, ok := a.eval(e)
		if ok {
			args[i] = v
		}
	}
	if c.fn.context && e.monitor == nil {
		return "", false
	}
	return c.fn.apply(e, args)
}
