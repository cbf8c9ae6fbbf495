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
	"sort"
	"strconv"
	"time"
)

// Snapshot is a point-in-time copy of a State, suitable for serialization.
type Snapshot struct {
	Hostname string            `json:"hostname" yaml:"hostname"`
	TakenAt  time.Time         `json:"takenAt" yaml:"takenAt"`
	Monitors []MonitorSnapshot `json:"monitors" yaml:"monitors"`
}

// MonitorSnapshot is the serializable copy of a Monitor.
type MonitorSnapshot struct {
	Type                 string            `json:"type" yaml:"type"`
	ID                   string            `json:"id" yaml:"id"`
	IsEndpoint           bool              `json:"isEndpoint,omitempty" yaml:"isEndpoint,omitempty"`
	DiscoveryTime        *time.Time        `json:"discoveryTime,omitempty" yaml:"discoveryTime,omitempty"`
	Attributes           map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	LegacyTextParameters map[string]string `json:"legacyTextParameters,omitempty" yaml:"legacyTextParameters,omitempty"`
	NumberMetrics        []*NumberMetric   `json:"numberMetrics,omitempty" yaml:"numberMetrics,omitempty"`
	StateSetMetrics      []*StateSetMetric `json:"stateSetMetrics,omitempty" yaml:"stateSetMetrics,omitempty"`
}

// Snapshot copies the whole registry. Monitors are ordered by type then id.
func (s *State) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{Hostname: s.Hostname(), TakenAt: now}
	for _, t := range s.MonitorTypes() {
		for _, m := range s.MonitorsByType(t) {
			snap.Monitors = append(snap.Monitors, m.snapshot())
		}
	}
	return snap
}

func (m *Monitor) snapshot() MonitorSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms := MonitorSnapshot{
		Type:                 m.monitorType,
		ID:                   m.id,
		IsEndpoint:           m.isEndpoint,
		Attributes:           maps.Clone(m.attributes),
		LegacyTextParameters: maps.Clone(m.legacy),
	}
	if !m.discoveryTime.IsZero() {
		t := m.discoveryTime
		ms.DiscoveryTime = &t
	}
	for _, name := range sortedMetricNames(m.metrics) {
		switch mt := m.metrics[name].clone().(type) {
		case *NumberMetric:
			ms.NumberMetrics = append(ms.NumberMetrics, mt)
		case *StateSetMetric:
			ms.StateSetMetrics = append(ms.StateSetMetrics, mt)
		}
	}
	return ms
}

func sortedMetricNames(metrics map[string]Metric) []string {
	names := make([]string, 0, len(metrics))
	for n := range metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TableHeader names the columns of TableRows.
func (s Snapshot) TableHeader() []string {
	return []string{"TYPE", "ID", "METRIC", "VALUE"}
}

// TableRows renders one row per metric. A monitor without metrics still
// gets a row so that discovered but silent monitors are visible.
func (s Snapshot) TableRows() [][]string {
	var rows [][]string
	for _, m := range s.Monitors {
		if len(m.NumberMetrics) == 0 && len(m.StateSetMetrics) == 0 {
			rows = append(rows, []string{m.Type, m.ID, "", ""})
			continue
		}
		for _, nm := range m.NumberMetrics {
			rows = append(rows, []string{m.Type, m.ID, nm.Name, strconv.FormatFloat(nm.Value, 'g', -1, 64)})
		}
		for _, sm := range m.StateSetMetrics {
			rows = append(rows, []string{m.Type, m.ID, sm.Name, sm.Value})
		}
	}
	return rows
}

// Timestamp returns the time the snapshot was taken.
func (s Snapshot) Timestamp() time.Time { return s.TakenAt }

// Host returns the monitored host name.
func (s Snapshot) Host() string { return s.Hostname }
