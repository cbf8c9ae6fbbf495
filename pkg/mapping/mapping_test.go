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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

func evalFree(t *testing.T, expr string, row []string) (string, bool) {
	t.Helper()
	n, err := Parse(expr)
	require.NoError(t, err)
	require.False(t, n.UsesContext())
	return n.eval(&env{row: row})
}

func TestContextFreeExpressions(t *testing.T) {
	row := []string{"d1", "100", "ON", "", "75"}

	tests := []struct {
		expr   string
		want   string
		wantOK bool
	}{
		{"$1", "d1", true},
		{"disk-$1", "disk-d1", true},
		{"$1/$2", "d1/100", true},
		{"$9", "", false},
		{"disk-$9", "", false},
		{"plain text", "plain text", true},
		{"cost $$5", "cost $5", true},
		{"price $", "price $", true},
		{"megaBit2Bit($2)", "100000000", true},
		{"megaHertz2Hertz($2)", "100000000", true},
		{"mebiByte2Byte($2)", "104857600", true},
		{"percent2Ratio($5)", "0.75", true},
		{"percent2Ratio($1)", "", false},
		{"boolean($3)", "1", true},
		{`boolean("no")`, "0", true},
		{"boolean($1)", "", false},
		{"legacyLedStatus($3)", "On", true},
		{`legacyLedStatus("blinking")`, "Blinking", true},
		{`legacyIntrusionStatus("1")`, "open", true},
		{`legacyPredictedFailure("0")`, "false", true},
		{`legacyNeedsCleaning("2")`, "needs_cleaning_immediately", true},
		{"percent2Ratio(megaBit2Bit($2))", "1000000", true},
		{"unknownFn($1)", "unknownFn(d1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := evalFree(t, tt.expr, row)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"megaBit2Bit($1, $2)",
		"megaBit2Bit()",
		`boolean("unterminated)`,
		"$0",
		"rate(megaBit2Bit($1)",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			n, err := Parse(expr)
			if err == nil {
				// An unbalanced call is not recognized as a call and stays literal.
				_, isCall := n.(call)
				assert.False(t, isCall)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestUsesContext(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"$1", false},
		{"megaBit2Bit($1)", false},
		{"rate($1)", true},
		{"megaBit2Bit(rate($1))", true},
		{"keepPrevious($2)", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			n, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.UsesContext())
		})
	}
}

func newMonitor(t *testing.T) *telemetry.Monitor {
	t.Helper()
	s := telemetry.NewState(&config.HostConfiguration{Hostname: "h"})
	m, _ := s.GetOrCreateMonitor("disk", "d1", nil)
	return m
}

func TestProcessorPasses(t *testing.T) {
	m := &connector.Mapping{
		Source: "s1",
		Attributes: map[string]string{
			"id":     "$1",
			"name":   "disk-$1",
			"vendor": "keepPrevious($3)",
			"blank":  "$3",
		},
		Metrics: map[string]string{
			"hw.errors":    "$2",
			"hw.io.rate":   "rate($2)",
			"hw.energy":    "fakeCounter($4)",
			"hw.unmatched": "$9",
		},
		LegacyTextParameters: map[string]string{
			"StatusInformation": "disk $1 ok",
		},
	}
	c, err := Compile(m)
	require.NoError(t, err)
	assert.Equal(t, "s1", c.Source())

	again, err := Compile(m)
	require.NoError(t, err)
	assert.Same(t, c, again, "compiled mappings are cached")

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mon := newMonitor(t)
	mon.SetAttribute("vendor", "X")

	p := NewProcessor(c, []string{"d1", "100", "", "2"}, t0)
	assert.Equal(t, map[string]string{"id": "d1", "name": "disk-d1"}, p.Attributes())
	assert.Equal(t, map[string]string{"hw.errors": "100"}, p.Metrics())
	assert.Equal(t, map[string]string{"StatusInformation": "disk d1 ok"}, p.LegacyTextParameters())

	assert.Equal(t, map[string]string{"vendor": "X"}, p.ContextAttributes(mon))
	assert.Equal(t, map[string]string{"hw.energy": "0"}, p.ContextMetrics(mon), "rate is absent on first sight")
	assert.Empty(t, p.ContextLegacyTextParameters(mon))

	p = NewProcessor(c, []string{"d1", "160", "Y", "2"}, t0.Add(20*time.Second))
	assert.Equal(t, map[string]string{"vendor": "Y"}, p.ContextAttributes(mon))
	assert.Equal(t, map[string]string{"hw.io.rate": "3", "hw.energy": "40"}, p.ContextMetrics(mon))

	// Same collect time: values are stable.
	assert.Equal(t, map[string]string{"hw.io.rate": "3", "hw.energy": "40"}, p.ContextMetrics(mon))
}

func TestKeepPreviousMetric(t *testing.T) {
	c, err := Compile(&connector.Mapping{
		Source:  "s1",
		Metrics: map[string]string{"hw.temperature": "keepPrevious($1)"},
	})
	require.NoError(t, err)

	mon := newMonitor(t)
	p := NewProcessor(c, []string{""}, time.Now())
	assert.Empty(t, p.ContextMetrics(mon))

	telemetry.NewCollector("h").CollectNumber(mon, "hw.temperature", nil, 41.5, connector.Gauge, time.Now(), false)
	assert.Equal(t, map[string]string{"hw.temperature": "41.5"}, p.ContextMetrics(mon))
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(nil)
	require.Error(t, err)

	_, err = Compile(&connector.Mapping{
		Source:     "s1",
		Attributes: map[string]string{"id": "$0"},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}

func TestMerge(t *testing.T) {
	got := Merge(map[string]string{"a": "1", "b": "2"}, map[string]string{"b": "3"})
	assert.Equal(t, map[string]string{"a": "1", "b": "3"}, got)
}
