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

// Package telemetry holds the live monitor graph of a host and the
// MetricCollector that writes into it.
//
// # Registry
//
// State indexes monitors by type then id behind an RWMutex. Each Monitor
// guards its own attributes, metrics and legacy text parameters, so jobs of
// different monitor types can run concurrently. Monitors are never removed;
// a monitor that disappears from discovery keeps its last values and is
// flagged through its presence metric.
//
// Each connector also gets a ConnectorNamespace holding the source tables
// of the previous cycle and the connector's force-serialization lock.
//
// # Metrics
//
// Metric is a closed interface over *NumberMetric and *StateSetMetric:
//
//	switch m := metric.(type) {
//	case *telemetry.NumberMetric:
//	    fmt.Println(m.Value, m.Rate)
//	case *telemetry.StateSetMetric:
//	    fmt.Println(m.Value, m.States())
//	}
//
// Counters carry a per-second Rate computed against the previous
// observation. The rate is nil on the first observation and whenever the
// time delta is not positive.
package telemetry
