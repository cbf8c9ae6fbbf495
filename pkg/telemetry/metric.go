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
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
)

// Metric is implemented by *NumberMetric and *StateSetMetric only.
type Metric interface {
	MetricName() string
	MetricKind() connector.MetricKind
	CollectedAt() time.Time
	clone() Metric
}

// NumberMetric is a numeric observation. For counters, Rate holds the
// per-second rate against the previous observation; nil means absent.
type NumberMetric struct {
	Name                string               `json:"name" yaml:"name"`
	Kind                connector.MetricKind `json:"kind" yaml:"kind"`
	Labels              map[string]string    `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value               float64              `json:"value" yaml:"value"`
	PreviousValue       *float64             `json:"previousValue,omitempty" yaml:"previousValue,omitempty"`
	CollectTime         time.Time            `json:"collectTime" yaml:"collectTime"`
	PreviousCollectTime time.Time            `json:"previousCollectTime,omitzero" yaml:"previousCollectTime,omitempty"`
	Rate                *float64             `json:"rate,omitempty" yaml:"rate,omitempty"`
	ResetTime           bool                 `json:"resetTime,omitempty" yaml:"resetTime,omitempty"`
}

func (m *NumberMetric) MetricName() string               { return m.Name }
func (m *NumberMetric) MetricKind() connector.MetricKind { return m.Kind }
func (m *NumberMetric) CollectedAt() time.Time           { return m.CollectTime }

func (m *NumberMetric) clone() Metric {
	c := *m
	c.Labels = maps.Clone(m.Labels)
	if m.PreviousValue != nil {
		v := *m.PreviousValue
		c.PreviousValue = &v
	}
	if m.Rate != nil {
		r := *m.Rate
		c.Rate = &r
	}
	return &c
}

// update records v at t. A second observation at the same collect time
// replaces the value without shifting the previous one.
func (m *NumberMetric) update(v float64, t time.Time) {
	if !m.CollectTime.IsZero() && !t.Equal(m.CollectTime) {
		prev := m.Value
		m.PreviousValue = &prev
		m.PreviousCollectTime = m.CollectTime
	}
	m.Value = v
	m.CollectTime = t
	m.Rate = nil

	if m.Kind != connector.Counter || m.PreviousValue == nil {
		return
	}
	dt := t.Sub(m.PreviousCollectTime).Seconds()
	if dt <= 0 {
		return
	}
	rate := (v - *m.PreviousValue) / dt
	m.Rate = &rate
}

// StateSetMetric holds one value out of a declared set of states.
type StateSetMetric struct {
	Name                string               `json:"name" yaml:"name"`
	Kind                connector.MetricKind `json:"kind" yaml:"kind"`
	Labels              map[string]string    `json:"labels,omitempty" yaml:"labels,omitempty"`
	StateSet            []string             `json:"stateSet" yaml:"stateSet"`
	Value               string               `json:"value" yaml:"value"`
	PreviousValue       string               `json:"previousValue,omitempty" yaml:"previousValue,omitempty"`
	CollectTime         time.Time            `json:"collectTime" yaml:"collectTime"`
	PreviousCollectTime time.Time            `json:"previousCollectTime,omitzero" yaml:"previousCollectTime,omitempty"`
	ResetTime           bool                 `json:"resetTime,omitempty" yaml:"resetTime,omitempty"`
}

func (m *StateSetMetric) MetricName() string               { return m.Name }
func (m *StateSetMetric) MetricKind() connector.MetricKind { return m.Kind }
func (m *StateSetMetric) CollectedAt() time.Time           { return m.CollectTime }

func (m *StateSetMetric) clone() Metric {
	c := *m
	c.Labels = maps.Clone(m.Labels)
	c.StateSet = slices.Clone(m.StateSet)
	return &c
}

// States returns one boolean per declared state; exactly the current one is true.
func (m *StateSetMetric) States() map[string]bool {
	out := make(map[string]bool, len(m.StateSet))
	for _, s := range m.StateSet {
		out[s] = strings.EqualFold(s, m.Value)
	}
	return out
}

func (m *StateSetMetric) update(v string, t time.Time) {
	if !m.CollectTime.IsZero() && !t.Equal(m.CollectTime) {
		m.PreviousValue = m.Value
		m.PreviousCollectTime = m.CollectTime
	}
	m.Value = v
	m.CollectTime = t
}
