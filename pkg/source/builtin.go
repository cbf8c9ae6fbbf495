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

package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// Built-in source types.
const (
	TypeStatic    = "static"
	TypeReference = "reference"
	TypeFile      = "file"
	TypeSystemd   = "systemd"
	TypeSNMP      = "snmp"
	TypeCommand   = "commandline"
)

const defaultColumnSeparator = ";"

// handleStatic turns the source value into a table: one row per line,
// columns split by the source separator (default ";").
func handleStatic(_ context.Context, src connector.Source, _ string, _ *telemetry.State) (telemetry.Table, error) {
	if src.Value == "" {
		return telemetry.EmptyTable(), nil
	}
	sep := src.Separator
	if sep == "" {
		sep = defaultColumnSeparator
	}
	return telemetry.TableFromText(src.Value, "\n", sep), nil
}

// handleReference copies a table already stored in the connector namespace.
// The reference may be "${source::key}" or the plain namespace key.
func handleReference(_ context.Context, src connector.Source, connectorID string,
	state *telemetry.State) (telemetry.Table, error) {

	key := connector.TrimSourceRef(src.Ref)
	if key == "" {
		return telemetry.Table{}, fmt.Errorf("reference source %s has no ref", src.Key)
	}
	ns := state.Namespace(connectorID)
	t, ok := ns.SourceTable(key)
	if !ok {
		// Qualified keys may be shortened to their last segment within a task.
		for _, k := range ns.SourceKeys() {
			if strings.HasSuffix(k, ".sources."+key) {
				t, ok = ns.SourceTable(k)
				break
			}
		}
	}
	if !ok {
		return telemetry.Table{}, fmt.Errorf("referenced table %s not found", key)
	}
	return t, nil
}
