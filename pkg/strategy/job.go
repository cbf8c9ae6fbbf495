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
	"log/slog"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/guard"
	"github.com/NVIDIA/hwtelemetry/pkg/mapping"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// jobContext is the input of one monitor job.
type jobContext struct {
	conn        *connector.Connector
	monitorType string
	job         *connector.MonitorJob
	task        *connector.Task
	cycleTime   time.Time
	log         *slog.Logger
}

// runPreSources runs the connector-level sources shared by all jobs.
func (s *Scheduler) runPreSources(ctx context.Context, conn *connector.Connector) error {
	pre := conn.PreTask()
	if pre.Sources.Len() == 0 {
		return nil
	}
	return s.runSources(ctx, conn, pre, nil)
}

// runSources executes the sources of task in dependency order and stores
// every table in the connector namespace under its qualified key. attrs
// are the monitor attributes available to the sources, nil outside
// mono-instance collect.
func (s *Scheduler) runSources(ctx context.Context, conn *connector.Connector, task *connector.Task,
	attrs map[string]string) error {

	order, err := OrderSources(task.Sources.Keys(), task.Dependencies(), task.HintOrder())
	if err != nil {
		return err
	}

	ns := s.state.Namespace(conn.ID)
	cfg := s.state.Config()
	log := slog.With("host", s.state.Hostname(), "connector", conn.ID, "task", task.Scope())
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, _ := task.Sources.Get(key)
		qualified := task.QualifiedKey(key)
		src.Key = qualified
		if src.Ref != "" {
			src.Ref = s.qualifyRef(conn, task, src.Ref)
		}

		previous, hadPrevious := ns.SourceTable(qualified)
		req := guard.Request{
			ConnectorID: conn.ID,
			SourceKey:   qualified,
			Serialize:   src.ForceSerialization,
			Description: src.Type + " source",
		}
		attempt := func(ctx context.Context) (telemetry.Table, error) {
			t := guard.Run(ctx, s.gate, ns.SerializationLock(), req, telemetry.EmptyTable(),
				func(ctx context.Context) telemetry.Table {
					return s.sources.ProcessSource(ctx, src, conn.ID, s.state, attrs)
				})
			if hadPrevious && !previous.IsEmpty() && t.IsEmpty() {
				return t, guard.Retryable("source returned no rows after returning rows", nil)
			}
			return t, nil
		}

		table, err := guard.Retry(ctx, attempt, cfg.MaxRetries(), telemetry.EmptyTable(),
			guard.WithDelay(cfg.RetryDelay),
			guard.WithDescription("source "+qualified),
			guard.WithLogger(log))
		if err != nil {
			return err
		}
		ns.SetSourceTable(qualified, table)
	}
	return nil
}

// qualifyRef turns a reference to a sibling or pre source into the
// namespace key of its table. Other references are returned as written.
func (s *Scheduler) qualifyRef(conn *connector.Connector, task *connector.Task, ref string) string {
	if local, ok := task.LocalKey(ref); ok {
		return task.QualifiedKey(local)
	}
	pre := conn.PreTask()
	if local, ok := pre.LocalKey(ref); ok {
		return pre.QualifiedKey(local)
	}
	return connector.TrimSourceRef(ref)
}

// mappingTable compiles the task mapping and returns the table it iterates.
// A task without mapping yields an empty table.
func (s *Scheduler) mappingTable(jc *jobContext) (*mapping.Compiled, telemetry.Table, error) {
	if jc.task.Mapping == nil {
		jc.log.Debug("task has no mapping")
		return nil, telemetry.EmptyTable(), nil
	}
	compiled, err := mapping.Compile(jc.task.Mapping)
	if err != nil {
		return nil, telemetry.Table{}, err
	}
	key := s.qualifyRef(jc.conn, jc.task, compiled.Source())
	table, ok := s.state.Namespace(jc.conn.ID).SourceTable(key)
	if !ok {
		jc.log.Debug("mapping source has no table", "source", key)
		return compiled, telemetry.EmptyTable(), nil
	}
	return compiled, table, nil
}

// applyRow writes the mapped metrics and legacy text parameters of one row
// to m.
func (s *Scheduler) applyRow(jc *jobContext, p *mapping.Processor, m *telemetry.Monitor, isDiscovery bool) {
	metrics := mapping.Merge(p.Metrics(), p.ContextMetrics(m))
	legacy := mapping.Merge(p.LegacyTextParameters(), p.ContextLegacyTextParameters(m))
	s.collector.CollectMetrics(jc.monitorType, jc.conn, m, metrics, jc.cycleTime, isDiscovery)
	if len(legacy) > 0 {
		m.AddLegacyTextParameters(legacy)
	}
}
