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

package telemetry

import (
	"strings"
)

// Table is the result of a source: ordered rows of ordered string columns.
type Table struct {
	Rows    [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`
	RawData string     `json:"rawData,omitempty" yaml:"rawData,omitempty"`
}

// EmptyTable returns a table with no rows.
func EmptyTable() Table {
	return Table{}
}

// IsEmpty reports whether the table has no rows.
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// FirstRow returns the first row, if any.
func (t Table) FirstRow() ([]string, bool) {
	if len(t.Rows) == 0 {
		return nil, false
	}
	return t.Rows[0], true
}

// Text returns the raw data when present, otherwise the rows rendered with
// ";" between columns and a newline between rows.
func (t Table) Text() string {
	if t.RawData != "" {
		return t.RawData
	}
	var b strings.Builder
	for i, row := range t.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row, ";"))
	}
	return b.String()
}

// Clone returns a deep copy, so a stored table is never shared with a caller.
func (t Table) Clone() Table {
	out := Table{RawData: t.RawData}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}

// TableFromText splits text into rows by lineSep and columns by colSep.
// Blank lines are dropped. The text is kept as raw data.
func TableFromText(text, lineSep, colSep string) Table {
	if lineSep == "" {
		lineSep = "\n"
	}
	t := Table{RawData: text}
	for _, line := range strings.Split(text, lineSep) {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		var cols []string
		if colSep == "" {
			cols = strings.Fields(line)
		} else {
			cols = strings.Split(line, colSep)
		}
		t.Rows = append(t.Rows, cols)
	}
	return t
}
