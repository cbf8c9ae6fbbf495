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
	"log/slog"

	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// FindMonitor returns the monitor of sameType owned by connectorID whose
// identifying keys all equal the collected values. A key missing on either
// side never matches. sameType is expected sorted by id, so the first match
// is deterministic; further matches are reported as duplicates.
func FindMonitor(connectorID string, sameType []*telemetry.Monitor, collected map[string]string,
	keys []string) (*telemetry.Monitor, bool) {

	if len(keys) == 0 {
		return nil, false
	}

	var found *telemetry.Monitor
	for _, m := range sameType {
		if owner, ok := m.Attribute(telemetry.AttrConnectorID); !ok || owner != connectorID {
			continue
		}
		if !keysMatch(m, collected, keys) {
			continue
		}
		if found != nil {
			slog.Warn("several monitors match the same identifying keys",
				"connector", connectorID,
				"monitor_type", m.Type(),
				"kept", found.ID(),
				"duplicate", m.ID())
			continue
		}
		found = m
	}
	return found, found != nil
}

func keysMatch(m *telemetry.Monitor, collected map[string]string, keys []string) bool {
	for _, k := range keys {
		want, ok := collected[k]
		if !ok {
			return false
		}
		have, ok := m.Attribute(k)
		if !ok || have != want {
			return false
		}
	}
	return true
}
