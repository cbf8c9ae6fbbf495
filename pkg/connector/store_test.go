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

package connector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

const minimalConnector = `
monitors:
  fan:
    discovery:
      sources:
        s1:
          type: static
          value: "fan-1"
      mapping:
        source: s1
        attributes:
          id: $1
`

func ids(cs []*Connector) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestDirectoryStore(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zfan.yaml", "afan.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(minimalConnector), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o700))

	tests := []struct {
		name    string
		include []string
		want    []string
	}{
		{"all", nil, []string{"afan", "zfan"}},
		{"filtered", []string{"zfan"}, []string{"zfan"}},
		{"unknown filter", []string{"other"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDirectoryStore(dir, tt.include)
			cs, err := s.ConnectorsForHost(context.Background(), "host-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(cs))
		})
	}
}

func TestDirectoryStoreErrors(t *testing.T) {
	_, err := NewDirectoryStore(filepath.Join(t.TempDir(), "missing"), nil).
		ConnectorsForHost(context.Background(), "h")
	require.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("monitors: ["), 0o600))
	_, err = NewDirectoryStore(dir, nil).ConnectorsForHost(context.Background(), "h")
	require.Error(t, err)
}

func TestConfigMapStore(t *testing.T) {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "hwt-connectors", Namespace: "monitoring"},
		Data: map[string]string{
			"linux.yaml":   minimalConnector,
			"ipmi.yaml":    minimalConnector,
			"README":       "not a connector",
			"storage.yaml": minimalConnector,
		},
	}
	s := &ConfigMapStore{
		Client:    fake.NewClientset(cm),
		Namespace: "monitoring",
		Name:      "hwt-connectors",
		Include:   []string{"linux", "storage"},
	}

	cs, err := s.ConnectorsForHost(context.Background(), "host-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"linux", "storage"}, ids(cs))
	assert.True(t, cs[0].HasMonitorType("fan"))
}

func TestConfigMapStoreMissing(t *testing.T) {
	s := &ConfigMapStore{Client: fake.NewClientset(), Namespace: "monitoring", Name: "absent"}
	_, err := s.ConnectorsForHost(context.Background(), "host-1")
	require.Error(t, err)
}
