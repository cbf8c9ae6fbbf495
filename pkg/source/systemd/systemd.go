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

package systemd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// DefaultProperties are reported when a source lists none.
var DefaultProperties = []string{"LoadState", "ActiveState", "SubState"}

// Conn is the subset of the systemd D-Bus connection used by the handler.
type Conn interface {
	ListUnitsByPatternsContext(ctx context.Context, states []string, patterns []string) ([]dbus.UnitStatus, error)
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]any, error)
	Close()
}

// Dialer opens a Conn.
type Dialer func(ctx context.Context) (Conn, error)

// Handler serves "systemd" sources.
type Handler struct {
	dial    Dialer
	timeout time.Duration
}

// NewHandler returns a handler using the system bus. A nil dial selects
// the system bus connection.
func NewHandler(dial Dialer) *Handler {
	if dial == nil {
		dial = func(ctx context.Context) (Conn, error) {
			conn, err := dbus.NewSystemdConnectionContext(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}
	}
	return &Handler{dial: dial, timeout: defaults.SystemdTimeout}
}

// Handle returns one row per unit matching src.Units: the unit name followed
// by the requested properties.
func (h *Handler) Handle(ctx context.Context, src connector.Source, _ string, _ *telemetry.State) (telemetry.Table, error) {
	if len(src.Units) == 0 {
		return telemetry.Table{}, fmt.Errorf("systemd source %s lists no units", src.Key)
	}
	props := src.Properties
	if len(props) == 0 {
		props = DefaultProperties
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	conn, err := h.dial(ctx)
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	units, err := conn.ListUnitsByPatternsContext(ctx, nil, src.Units)
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("failed to list units: %w", err)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	t := telemetry.EmptyTable()
	for _, u := range units {
		data, err := conn.GetUnitPropertiesContext(ctx, u.Name)
		if err != nil {
			return telemetry.Table{}, fmt.Errorf("failed to get unit properties of %s: %w", u.Name, err)
		}
		row := make([]string, 0, len(props)+1)
		row = append(row, u.Name)
		for _, p := range props {
			row = append(row, format(data[p]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
