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

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/mapping"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// CollectStrategy refreshes the metrics of discovered monitors.
type CollectStrategy struct {
	s *Scheduler
}

// Name implements Strategy.
func (c *CollectStrategy) Name() string { return connector.JobCollect }

func (c *CollectStrategy) runJob(ctx context.Context, jc *jobContext) error {
	if jc.task.CollectType() == connector.MonoInstance {
		return c.monoInstance(ctx, jc)
	}
	return c.multiInstance(ctx, jc)
}

// multiInstance runs the sources once and matches every row to a
// discovered monitor by its identifying keys.
func (c *CollectStrategy) multiInstance(ctx context.Context, jc *jobContext) error {
	s := c.s
	if err := s.runSources(ctx, jc.conn, jc.task, nil); err != nil {
		return err
	}
	compiled, table, err := s.mappingTable(jc)
	if err != nil {
		return err
	}

	keys := jc.job.IdentifyingKeys()
	sameType := s.state.MonitorsByType(jc.monitorType)
	matched := 0
	for i, row := range table.Rows {
		p := mapping.NewProcessor(compiled, row, jc.cycleTime)

		var (
			m  *telemetry.Monitor
			ok bool
		)
		if jc.monitorType == telemetry.EndpointMonitorType {
			m, ok = s.state.EndpointHost(), true
		} else {
			m, ok = FindMonitor(jc.conn.ID, sameType, p.Attributes(), keys)
		}
		if !ok {
			jc.log.Debug("collected row matches no monitor",
				"row", i,
				"keys", keys,
				"error", errors.New(errors.ErrCodeIdentityMismatch, "no monitor with these identifying keys"))
			continue
		}
		s.applyRow(jc, p, m, false)
		matched++
	}
	jc.log.Debug("collect done", "rows", len(table.Rows), "matched", matched)
	return nil
}

// monoInstance runs the sources once per monitor owned by the connector,
// with the monitor's attributes available to the sources, and maps the
// first row to that monitor.
func (c *CollectStrategy) monoInstance(ctx context.Context, jc *jobContext) error {
	s := c.s
	monitors := s.state.OwnedMonitors(jc.monitorType, jc.conn.ID)
	if jc.monitorType == telemetry.EndpointMonitorType {
		monitors = []*telemetry.Monitor{s.state.EndpointHost()}
	}

	for _, m := range monitors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runSources(ctx, jc.conn, jc.task, m.Attributes()); err != nil {
			return err
		}
		compiled, table, err := s.mappingTable(jc)
		if err != nil {
			return err
		}
		row, ok := table.FirstRow()
		if !ok {
			jc.log.Debug("mono-instance collect returned no rows", "monitor", m.ID())
			continue
		}
		s.applyRow(jc, mapping.NewProcessor(compiled, row, jc.cycleTime), m, false)
	}
	return nil
}
