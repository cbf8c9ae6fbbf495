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
	"sort"
	"sync"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
)

// EndpointMonitorType is the type of the monitor representing the host itself.
const EndpointMonitorType = "host"

// State is the telemetry registry of one monitored host. It is passed
// explicitly to every component; nothing about it is global.
type State struct {
	config *config.HostConfiguration

	mu       sync.RWMutex
	monitors map[string]map[string]*Monitor

	nsMu       sync.Mutex
	namespaces map[string]*ConnectorNamespace
}

// NewState returns an empty registry for the host described by cfg.
func NewState(cfg *config.HostConfiguration) *State {
	if cfg == nil {
		cfg = &config.HostConfiguration{}
	}
	return &State{
		config:     cfg,
		monitors:   make(map[string]map[string]*Monitor),
		namespaces: make(map[string]*ConnectorNamespace),
	}
}

// Config returns the host configuration.
func (s *State) Config() *config.HostConfiguration {
	return s.config
}

// Hostname returns the configured host name.
func (s *State) Hostname() string {
	return s.config.Hostname
}

// FindMonitor returns the monitor registered under (monitorType, id).
func (s *State) FindMonitor(monitorType, id string) (*Monitor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[monitorType][id]
	return m, ok
}

// GetOrCreateMonitor returns the monitor registered under (monitorType, id),
// creating it when absent. init runs once, on creation, before the monitor
// becomes visible to other goroutines.
func (s *State) GetOrCreateMonitor(monitorType, id string, init func(*Monitor)) (*Monitor, bool) {
	s.mu.RLock()
	m, ok := s.monitors[monitorType][id]
	s.mu.RUnlock()
	if ok {
		return m, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.monitors[monitorType]
	if !ok {
		byID = make(map[string]*Monitor)
		s.monitors[monitorType] = byID
	}
	if m, ok := byID[id]; ok {
		return m, false
	}
	m = newMonitor(monitorType, id)
	if init != nil {
		init(m)
	}
	byID[id] = m
	return m, true
}

// MonitorsByType returns the monitors of a type sorted by id.
func (s *State) MonitorsByType(monitorType string) []*Monitor {
	s.mu.RLock()
	out := make([]*Monitor, 0, len(s.monitors[monitorType]))
	for _, m := range s.monitors[monitorType] {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// OwnedMonitors returns the monitors of a type created by connectorID,
// sorted by id.
func (s *State) OwnedMonitors(monitorType, connectorID string) []*Monitor {
	var out []*Monitor
	for _, m := range s.MonitorsByType(monitorType) {
		if v, ok := m.Attribute(AttrConnectorID); ok && v == connectorID {
			out = append(out, m)
		}
	}
	return out
}

// MonitorTypes returns the registered monitor types, sorted.
func (s *State) MonitorTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.monitors))
	for t := range s.monitors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MonitorCount returns the total number of monitors.
func (s *State) MonitorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byID := range s.monitors {
		n += len(byID)
	}
	return n
}

// EndpointHost returns the monitor of the host itself, creating it on first use.
func (s *State) EndpointHost() *Monitor {
	id := s.config.HostID
	if id == "" {
		id = s.config.Hostname
	}
	m, _ := s.GetOrCreateMonitor(EndpointMonitorType, id, func(m *Monitor) {
		m.isEndpoint = true
		m.attributes[AttrID] = id
		m.attributes[AttrHostName] = s.config.Hostname
		if s.config.HostType != "" {
			m.attributes["host.type"] = s.config.HostType
		}
	})
	return m
}

// Namespace returns the namespace of a connector, creating it on first use.
func (s *State) Namespace(connectorID string) *ConnectorNamespace {
	s.nsMu.Lock()
	defer s.nsMu.Unlock()
	ns, ok := s.namespaces[connectorID]
	if !ok {
		ns = newConnectorNamespace()
		s.namespaces[connectorID] = ns
	}
	return ns
}
