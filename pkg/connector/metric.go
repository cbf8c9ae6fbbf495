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

package connector

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MetricKind is the semantic kind of a metric.
type MetricKind string

const (
	Gauge         MetricKind = "Gauge"
	Counter       MetricKind = "Counter"
	UpDownCounter MetricKind = "UpDownCounter"
)

// MetricDefinition declares a metric produced by a connector.
type MetricDefinition struct {
	Unit        string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Type        MetricType `json:"type" yaml:"type,omitempty"`
}

// MetricType is either a plain kind ("Counter") or a state set:
//
//	type:
//	  stateSet: [ok, degraded, failed]
//	  output: Gauge
type MetricType struct {
	Kind     MetricKind `json:"kind,omitempty"`
	StateSet []string   `json:"stateSet,omitempty"`
}

// IsStateSet reports whether the metric is declared as a state set.
func (t MetricType) IsStateSet() bool {
	return len(t.StateSet) > 0
}

// OutputKind returns the declared kind, defaulting to Gauge.
func (t MetricType) OutputKind() MetricKind {
	if t.Kind == "" {
		return Gauge
	}
	return t.Kind
}

// UnmarshalYAML accepts both the scalar and the state-set forms.
func (t *MetricType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		kind, err := parseKind(node.Value)
		if err != nil {
			return err
		}
		t.Kind = kind
		return nil
	case yaml.MappingNode:
		var raw struct {
			StateSet []string `yaml:"stateSet"`
			Output   string   `yaml:"output"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		kind, err := parseKind(raw.Output)
		if err != nil {
			return err
		}
		t.Kind = kind
		t.StateSet = NormalizeStates(raw.StateSet)
		return nil
	default:
		return fmt.Errorf("invalid metric type at line %d", node.Line)
	}
}

// NormalizeStates lowercases and trims declared states, dropping blanks.
// Observed states are compared in the same form.
func NormalizeStates(states []string) []string {
	if states == nil {
		return nil
	}
	out := make([]string, 0, len(states))
	for _, s := range states {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseKind(s string) (MetricKind, error) {
	switch MetricKind(s) {
	case "":
		return Gauge, nil
	case Gauge, Counter, UpDownCounter:
		return MetricKind(s), nil
	default:
		return "", fmt.Errorf("unknown metric kind %q", s)
	}
}
