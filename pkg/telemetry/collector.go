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
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
)

const stateLabel = "state"

// Collector turns mapped metric values into typed metrics on a monitor.
type Collector struct {
	hostname string
}

// NewCollector returns a collector for the given host.
func NewCollector(hostname string) *Collector {
	return &Collector{hostname: hostname}
}

// CollectMetrics applies every name -> value pair to m. Metric types are
// resolved from the monitor job declaration, then the connector
// declaration, then default to a numeric Gauge. conn may be nil for
// engine-generated metrics.
func (c *Collector) CollectMetrics(monitorType string, conn *connector.Connector, m *Monitor,
	metrics map[string]string, collectTime time.Time, isDiscovery bool) {

	for _, name := range sortedKeys(metrics) {
		value := metrics[name]
		base, labels := SplitMetricName(name)

		var (
			def      connector.MetricDefinition
			declared bool
		)
		if conn != nil {
			def, declared = conn.MetricDefinition(monitorType, base)
		}

		if declared && def.Type.IsStateSet() {
			if _, hasState := labels[stateLabel]; !hasState {
				c.collectStateSet(m, name, labels, value, def, collectTime, isDiscovery)
				continue
			}
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			metricValuesRejected.WithLabelValues("unparsable").Inc()
			slog.Warn("cannot parse metric value",
				"host", c.hostname,
				"monitor_type", monitorType,
				"monitor", m.ID(),
				"metric", name,
				"value", value)
			continue
		}

		kind := connector.Gauge
		if declared {
			kind = def.Type.OutputKind()
		}
		c.CollectNumber(m, name, labels, v, kind, collectTime, isDiscovery)
	}
}

// CollectNumber records a numeric observation and returns a copy of the
// resulting metric.
func (c *Collector) CollectNumber(m *Monitor, name string, labels map[string]string, value float64,
	kind connector.MetricKind, collectTime time.Time, isDiscovery bool) *NumberMetric {

	m.mu.Lock()
	defer m.mu.Unlock()

	nm, ok := m.metrics[name].(*NumberMetric)
	if !ok {
		if labels == nil {
			_, labels = SplitMetricName(name)
		}
		nm = &NumberMetric{Name: name, Labels: labels}
		m.metrics[name] = nm
	}
	nm.Kind = kind
	nm.ResetTime = isDiscovery
	nm.update(value, collectTime)
	return nm.clone().(*NumberMetric)
}

func (c *Collector) collectStateSet(m *Monitor, name string, labels map[string]string, value string,
	def connector.MetricDefinition, collectTime time.Time, isDiscovery bool) {

	states := connector.NormalizeStates(def.Type.StateSet)
	state := strings.ToLower(strings.TrimSpace(value))
	if !slices.Contains(states, state) {
		metricValuesRejected.WithLabelValues("unknown_state").Inc()
		slog.Warn("metric value is not a declared state",
			"host", c.hostname,
			"monitor_type", m.Type(),
			"monitor", m.ID(),
			"metric", name,
			"value", value,
			"states", def.Type.StateSet)
		return
	}
	c.CollectStateSet(m, name, labels, state, states, def.Type.OutputKind(), collectTime, isDiscovery)
}

// CollectStateSet records a state-set observation and returns a copy of the
// resulting metric.
func (c *Collector) CollectStateSet(m *Monitor, name string, labels map[string]string, state string,
	stateSet []string, kind connector.MetricKind, collectTime time.Time, isDiscovery bool) *StateSetMetric {

	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.metrics[name].(*StateSetMetric)
	if !ok {
		if labels == nil {
			_, labels = SplitMetricName(name)
		}
		sm = &StateSetMetric{Name: name, Labels: labels}
		m.metrics[name] = sm
	}
	sm.Kind = kind
	sm.StateSet = slices.Clone(stateSet)
	sm.ResetTime = isDiscovery
	sm.update(state, collectTime)
	return sm.clone().(*StateSetMetric)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
