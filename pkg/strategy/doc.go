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

// Package strategy schedules the monitor jobs of a host and turns their
// source tables into monitors and metrics.
//
// A cycle runs two strategies over every connector of the host, in a fixed
// connector order: discovery, when due, then collect. For each connector
// the scheduler re-validates the detection criteria, runs the connector
// pre sources, then the monitor jobs:
//
//   - host, enclosure, blade, disk_controller and cpu jobs run first, one
//     after the other, on the calling goroutine
//   - the other jobs run over a bounded errgroup, or sequentially when the
//     host is configured so; the pool wait is bounded by JobPoolTimeout
//
// Sources of a job run in dependency order (OrderSources), each through
// the retry guard and the connector's force serialization gate. Tables
// land in the connector namespace under "monitors.<type>.<job>.sources.<key>".
//
// Discovery creates a monitor per row carrying an id attribute, under the
// registry id "<connector>_<type>_<id>", and flags each monitor owned by
// the connector as present or missing. Collect matches multi-instance rows
// to monitors by their identifying keys (FindMonitor), or runs
// mono-instance sources once per monitor.
//
// Usage:
//
//	state := telemetry.NewState(cfg)
//	reg := source.NewDefaultRegistry(cfg)
//	s := strategy.New(state, connector.NewDirectoryStore(dir, cfg.Connectors), reg, reg)
//	res, err := s.Run(ctx)
//
// Failures are contained per job: errors and panics are logged and recorded
// in the ConnectorRun of the pass.
package strategy
