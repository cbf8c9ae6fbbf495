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
	"sync"
	"time"
)

// Well-known monitor attributes.
const (
	AttrID          = "id"
	AttrConnectorID = "connector_id"
	AttrHostName    = "host.name"
	AttrName        = "name"
)

// Memo is the state a context expression keeps between two observations.
type Memo struct {
	Value float64
	Total float64
	Time  time.Time
	Ready bool
}

// Monitor is a node of the telemetry graph. All maps are guarded by the
// monitor's own lock, so jobs running in parallel may update different
// monitors without touching the registry lock.
type Monitor struct {
	mu sync.RWMutex

	monitorType   string
	id            string
	isEndpoint    bool
	attributes    map[string]string
	metrics       map[string]Metric
	legacy        map[string]string
	discoveryTime time.Time
	memo          map[string]Memo
}

func newMonitor(monitorType, id string) *Monitor {
	return &Monitor{
		monitorType: monitorType,
		id:          id,
		attributes:  make(map[string]string),
		metrics:     make(map[string]Metric),
		legacy:      make(map[string]string),
		memo:        make(map[string]Memo),
	}
}

// Type returns the monitor type.
func (m *Monitor) Type() string { return m.monitorType }

// ID returns the registry id, unique within its type.
func (m *Monitor) ID() string { return m.id }

// IsEndpoint reports whether this is the monitored host itself.
func (m *Monitor) IsEndpoint() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isEndpoint
}

// Attribute returns one attribute value.
func (m *Monitor) Attribute(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.attributes[key]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (m *Monitor) Attributes() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.attributes)
}

// SetAttribute sets one attribute.
func (m *Monitor) SetAttribute(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributes[key] = value
}

// AddAttributes merges attrs over the existing attributes.
func (m *Monitor) AddAttributes(attrs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.attributes, attrs)
}

// LegacyTextParameter returns one legacy text parameter.
func (m *Monitor) LegacyTextParameter(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.legacy[key]
	return v, ok
}

// LegacyTextParameters returns a copy of the legacy text parameters.
func (m *Monitor) LegacyTextParameters() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.legacy)
}

// AddLegacyTextParameters merges params over the existing ones.
func (m *Monitor) AddLegacyTextParameters(params map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.legacy, params)
}

// Metric returns a copy of the named metric.
func (m *Monitor) Metric(name string) (Metric, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.metrics[name]
	if !ok {
		return nil, false
	}
	return mt.clone(), true
}

// NumberMetric returns a copy of a numeric metric.
func (m *Monitor) NumberMetric(name string) (*NumberMetric, bool) {
	mt, ok := m.Metric(name)
	if !ok {
		return nil, false
	}
	nm, ok := mt.(*NumberMetric)
	return nm, ok
}

// StateSetMetric returns a copy of a state-set metric.
func (m *Monitor) StateSetMetric(name string) (*StateSetMetric, bool) {
	mt, ok := m.Metric(name)
	if !ok {
		return nil, false
	}
	sm, ok := mt.(*StateSetMetric)
	return sm, ok
}

// MetricNames returns the metric names, sorted.
func (m *Monitor) MetricNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.metrics))
	for n := range m.metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DiscoveryTime returns the time of the last discovery that saw this monitor.
func (m *Monitor) DiscoveryTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.discoveryTime
}

// SetDiscoveryTime records the discovery cycle time.
func (m *Monitor) SetDiscoveryTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discoveryTime = t
}

// UpdateMemo replaces the memo stored under key with fn's result. fn runs
// under the monitor lock and must not call back into the monitor.
func (m *Monitor) UpdateMemo(key string, fn func(prev Memo, found bool) Memo) Memo {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.memo[key]
	next := fn(prev, ok)
	m.memo[key] = next
	return next
}

// Memo returns the memo stored under key.
func (m *Monitor) Memo(key string) (Memo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.memo[key]
	return v, ok
}
