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
	"strconv"
	"strings"

	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

type function struct {
	name    string
	arity   int
	context bool
	apply   func(e *env, args []string) (string, bool)
}

var functions = map[string]*function{}

func register(fn *function) {
	functions[fn.name] = fn
}

func init() {
	register(scale("megaBit2Bit", 1e6))
	register(scale("megaHertz2Hertz", 1e6))
	register(scale("mebiByte2Byte", 1024*1024))
	register(scale("percent2Ratio", 0.01))

	register(lookup("boolean", map[string]string{
		"1": "1", "true": "1", "yes": "1", "y": "1", "on": "1", "ok": "1",
		"0": "0", "false": "0", "no": "0", "n": "0", "off": "0",
	}))
	register(lookup("legacyLedStatus", map[string]string{
		"on": "On", "ok": "On", "lit": "On", "1": "On",
		"off": "Off", "0": "Off",
		"blinking": "Blinking", "blink": "Blinking", "flashing": "Blinking", "2": "Blinking",
	}))
	register(lookup("legacyIntrusionStatus", map[string]string{
		"0": "closed", "closed": "closed", "ok": "closed",
		"1": "open", "open": "open",
	}))
	register(lookup("legacyPredictedFailure", map[string]string{
		"0": "false", "false": "false", "ok": "false",
		"1": "true", "true": "true", "failure": "true",
	}))
	register(lookup("legacyNeedsCleaning", map[string]string{
		"0": "ok",
		"1": "needs_cleaning",
		"2": "needs_cleaning_immediately",
	}))

	register(&function{name: "rate", arity: 1, context: true, apply: applyRate})
	register(&function{name: "fakeCounter", arity: 1, context: true, apply: applyFakeCounter})
	register(&function{name: "keepPrevious", arity: 1, context: true, apply: applyKeepPrevious})
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func scale(name string, factor float64) *function {
	return &function{
		name:  name,
		arity: 1,
		apply: func(_ *env, args []string) (string, bool) {
			v, ok := parseNumber(args[0])
			if !ok {
				return "", false
			}
			return formatNumber(v * factor), true
		},
	}
}

func lookup(name string, table map[string]string) *function {
	return &function{
		name:  name,
		arity: 1,
		apply: func(_ *env, args []string) (string, bool) {
			v, ok := table[strings.ToLower(strings.TrimSpace(args[0]))]
			return v, ok
		},
	}
}

// applyRate returns the per-second delta against the previous observation
// of the same mapping entry on the same monitor. Absent on first sight.
func applyRate(e *env, args []string) (string, bool) {
	v, ok := parseNumber(args[0])
	if !ok {
		return "", false
	}
	next := e.monitor.UpdateMemo(e.memoKey("rate"), func(prev telemetry.Memo, found bool) telemetry.Memo {
		if !found {
			return telemetry.Memo{Value: v, Time: e.collectTime}
		}
		dt := e.collectTime.Sub(prev.Time).Seconds()
		if dt <= 0 {
			return prev
		}
		return telemetry.Memo{Value: v, Time: e.collectTime, Total: (v - prev.Value) / dt, Ready: true}
	})
	if !next.Ready {
		return "", false
	}
	return formatNumber(next.Total), true
}

// applyFakeCounter integrates a per-second rate into a monotonically
// increasing counter that starts at zero.
func applyFakeCounter(e *env, args []string) (string, bool) {
	r, ok := parseNumber(args[0])
	if !ok {
		return "", false
	}
	next := e.monitor.UpdateMemo(e.memoKey("fakeCounter"), func(prev telemetry.Memo, found bool) telemetry.Memo {
		if !found {
			return telemetry.Memo{Value: r, Time: e.collectTime, Ready: true}
		}
		dt := e.collectTime.Sub(prev.Time).Seconds()
		if dt <= 0 {
			return prev
		}
		total := prev.Total
		if r > 0 {
			total += r * dt
		}
		return telemetry.Memo{Value: r, Time: e.collectTime, Total: total, Ready: true}
	})
	return formatNumber(next.Total), true
}

// applyKeepPrevious returns its argument, or the monitor's current value
// for the same entry when the argument is blank.
func applyKeepPrevious(e *env, args []string) (string, bool) {
	if strings.TrimSpace(args[0]) != "" {
		return args[0], true
	}
	switch e.section {
	case sectionAttribute:
		return e.monitor.Attribute(e.key)
	case sectionLegacy:
		return e.monitor.LegacyTextParameter(e.key)
	case sectionMetric:
		m, ok := e.monitor.Metric(e.key)
		if !ok {
			return "", false
		}
		switch mt := m.(type) {
		case *telemetry.NumberMetric:
			return formatNumber(mt.Value), true
		case *telemetry.StateSetMetric:
			return mt.Value, true
		}
	}
	return "", false
}
