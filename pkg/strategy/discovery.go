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

package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/mapping"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// PresenceMetric is 1 on monitors seen by the last discovery of their
// connector and 0 on the others.
const PresenceMetric = `hw.status{state="present"}`

// DiscoveryStrategy creates and refreshes monitors from discovery tasks.
type DiscoveryStrategy struct {
	s *Scheduler
}

// Name implements Strategy.
func (d *DiscoveryStrategy) Name() string { return connector.JobDiscovery }

// MonitorRegistryID returns the registry id of a discovered monitor. The
// connector id prefix keeps monitors of different connectors apart.
func MonitorRegistryID(connectorID, monitorType, id string) string {
	return fmt.Sprintf("%s_%s_%s", connectorID, monitorType, id)
}

func (d *DiscoveryStrategy) runJob(ctx context.Context, jc *jobContext) error {
	s := d.s
	if err := s.runSources(ctx, jc.conn, jc.task, nil); err != nil {
		return err
	}
	compiled, table, err := s.mappingTable(jc)
	if err != nil {
		return err
	}

	discovered := 0
	for i, row := range table.Rows {
		p := mapping.NewProcessor(compiled, row, jc.cycleTime)
		attrs := p.Attributes()
		id := strings.TrimSpace(attrs[telemetry.AttrID])
		if id == "" {
			jc.log.Debug("discovered row has no id, skipping", "row", i)
			continue
		}

		m := d.monitorFor(jc, id)
		if m.IsEndpoint() {
			delete(attrs, telemetry.AttrID)
		}
		m.AddAttributes(attrs)
		if ctxAttrs := p.ContextAttributes(m); len(ctxAttrs) > 0 {
			m.AddAttributes(ctxAttrs)
		}
		m.SetDiscoveryTime(jc.cycleTime)
		s.applyRow(jc, p, m, true)
		discovered++
	}

	d.updatePresence(jc)
	jc.log.Debug("discovery done", "rows", len(table.Rows), "monitors", discovered)
	return nil
}

// monitorFor returns the monitor a discovered row describes. Host rows
// describe the endpoint host itself.
func (d *DiscoveryStrategy) monitorFor(jc *jobContext, id string) *telemetry.Monitor {
	s := d.s
	if jc.monitorType == telemetry.EndpointMonitorType {
		return s.state.EndpointHost()
	}
	m, created := s.state.GetOrCreateMonitor(jc.monitorType,
		MonitorRegistryID(jc.conn.ID, jc.monitorType, id),
		func(m *telemetry.Monitor) {
			m.SetAttribute(telemetry.AttrConnectorID, jc.conn.ID)
			m.SetAttribute(telemetry.AttrHostName, s.state.Hostname())
		})
	if created {
		jc.log.Debug("monitor created", "monitor", m.ID())
	}
	return m
}

// updatePresence flags the monitors of the job's type owned by its
// connector: present when refreshed by this cycle, missing otherwise.
// Missing monitors stay in the registry.
func (d *DiscoveryStrategy) updatePresence(jc *jobContext) {
	if jc.monitorType == telemetry.EndpointMonitorType {
		return
	}
	s := d.s
	for _, m := range s.state.OwnedMonitors(jc.monitorType, jc.conn.ID) {
		present := 1.0
		if m.DiscoveryTime().Before(jc.cycleTime) {
			present = 0
			jc.log.Info("monitor missing", "monitor", m.ID())
		}
		s.collector.CollectNumber(m, PresenceMetric, nil, present, connector.Gauge, jc.cycleTime, true)
	}
}
