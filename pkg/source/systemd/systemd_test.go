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
	"errors"
	"path"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
)

type fakeConn struct {
	units  map[string]map[string]any
	closed bool
}

func (f *fakeConn) ListUnitsByPatternsContext(_ context.Context, _ []string, patterns []string) ([]dbus.UnitStatus, error) {
	var out []dbus.UnitStatus
	for name := range f.units {
		for _, p := range patterns {
			if ok, _ := path.Match(p, name); ok {
				out = append(out, dbus.UnitStatus{Name: name})
				break
			}
		}
	}
	return out, nil
}

func (f *fakeConn) GetUnitPropertiesContext(_ context.Context, unit string) (map[string]any, error) {
	return f.units[unit], nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestHandle(t *testing.T) {
	conn := &fakeConn{units: map[string]map[string]any{
		"nvidia-persistenced.service": {"LoadState": "loaded", "ActiveState": "active", "SubState": "running", "NRestarts": uint32(2)},
		"nvidia-fabricmanager.service": {"LoadState": "loaded", "ActiveState": "failed", "SubState": "failed"},
		"sshd.service":                 {"ActiveState": "active"},
	}}
	h := NewHandler(func(context.Context) (Conn, error) { return conn, nil })

	table, err := h.Handle(context.Background(), connector.Source{Type: "systemd", Units: []string{"nvidia-*.service"}}, "c1", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"nvidia-fabricmanager.service", "loaded", "failed", "failed"},
		{"nvidia-persistenced.service", "loaded", "active", "running"},
	}, table.Rows)
	assert.True(t, conn.closed)

	table, err = h.Handle(context.Background(), connector.Source{
		Type:       "systemd",
		Units:      []string{"nvidia-persistenced.service"},
		Properties: []string{"NRestarts", "Missing"},
	}, "c1", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"nvidia-persistenced.service", "2", ""}}, table.Rows)
}

func TestHandleErrors(t *testing.T) {
	h := NewHandler(func(context.Context) (Conn, error) { return nil, errors.New("no bus") })

	_, err := h.Handle(context.Background(), connector.Source{Type: "systemd"}, "c1", nil)
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), connector.Source{Type: "systemd", Units: []string{"x.service"}}, "c1", nil)
	assert.ErrorContains(t, err, "no bus")
}
