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
	"strings"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/guard"
	"github.com/NVIDIA/hwtelemetry/pkg/source"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// Connector monitor conventions.
const (
	ConnectorMonitorType  = "connector"
	ConnectorStatusMetric = "hwt.connector.status"
	StatusInformation     = "StatusInformation"
)

var connectorStatusStates = []string{"ok", "failed"}

// ConnectorMonitorID returns the registry id of a connector's monitor.
func ConnectorMonitorID(connectorID string) string {
	return "connector_" + connectorID
}

// validateConnector re-runs the detection criteria of conn and records the
// outcome on the connector namespace and the connector monitor. Criteria
// run in order and stop at the first failure.
func (s *Scheduler) validateConnector(ctx context.Context, conn *connector.Connector, now time.Time) bool {
	ns := s.state.Namespace(conn.ID)
	ok := true
	var messages []string

	if conn.Detection == nil || len(conn.Detection.Criteria) == 0 {
		messages = append(messages, "no detection criteria")
	} else {
		for i, c := range conn.Detection.Criteria {
			req := guard.Request{
				ConnectorID: conn.ID,
				SourceKey:   "detection.criteria." + c.Type,
				Serialize:   c.ForceSerialization,
				Description: c.Type + " criterion",
			}
			failed := source.TestResult{Message: "criterion could not run"}
			res := guard.Run(ctx, s.gate, ns.SerializationLock(), req, failed,
				func(ctx context.Context) source.TestResult {
					return s.criteria.ProcessCriterion(ctx, c, conn.ID, s.state)
				})
			if res.Message != "" {
				messages = append(messages, res.Message)
			}
			if !res.Success {
				ok = false
				slog.Info("detection criterion failed",
					"host", s.state.Hostname(), "connector", conn.ID,
					"criterion", i, "type", c.Type, "message", res.Message, "error", res.Err)
				break
			}
		}
	}

	ns.SetStatusOK(ok)

	m, _ := s.state.GetOrCreateMonitor(ConnectorMonitorType, ConnectorMonitorID(conn.ID), func(m *telemetry.Monitor) {
		name := conn.DisplayName
		if name == "" {
			name = conn.ID
		}
		m.AddAttributes(map[string]string{
			telemetry.AttrID:          conn.ID,
			telemetry.AttrName:        name,
			telemetry.AttrConnectorID: conn.ID,
		})
	})
	state := "ok"
	if !ok {
		state = "failed"
	}
	s.collector.CollectStateSet(m, ConnectorStatusMetric, nil, state, connectorStatusStates,
		connector.Gauge, now, false)
	m.AddLegacyTextParameters(map[string]string{StatusInformation: strings.Join(messages, "\n")})
	return ok
}
