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

package serializer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

type stamped struct {
	Name string `json:"name"`
	at   time.Time
}

func (s stamped) Timestamp() time.Time { return s.at }
func (s stamped) Host() string         { return "server-01" }

func TestParseConfigMapURI(t *testing.T) {
	tests := []struct {
		name          string
		uri           string
		wantNamespace string
		wantName      string
		wantErr       bool
	}{
		{name: "valid", uri: "cm://monitoring/host-01", wantNamespace: "monitoring", wantName: "host-01"},
		{name: "spaces", uri: "cm://monitoring / host-01 ", wantNamespace: "monitoring", wantName: "host-01"},
		{name: "missing scheme", uri: "monitoring/host-01", wantErr: true},
		{name: "missing name", uri: "cm://monitoring", wantErr: true},
		{name: "empty namespace", uri: "cm:///host-01", wantErr: true},
		{name: "empty name", uri: "cm://monitoring/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, name, err := ParseConfigMapURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNamespace, ns)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestConfigMapWriterApplies(t *testing.T) {
	cs := fake.NewClientset()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewConfigMapWriter("monitoring", "host-01", FormatJSON, WithKubeClient(cs))

	require.NoError(t, w.Serialize(context.Background(), stamped{Name: "disk", at: at}))

	cm, err := cs.CoreV1().ConfigMaps("monitoring").Get(context.Background(), "host-01", metav1.GetOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"disk"}`, cm.Data["snapshot.json"])
	assert.Equal(t, "json", cm.Data["format"])
	assert.Equal(t, "2025-03-01T12:00:00Z", cm.Data["timestamp"])
	assert.Equal(t, "server-01", cm.Labels["hwtelemetry.nvidia.com/host"])

	// a second apply updates in place
	w2 := NewConfigMapWriter("monitoring", "host-01", FormatTable, WithKubeClient(cs))
	require.NoError(t, w2.Serialize(context.Background(), rows{{"a", "b"}}))
	cm, err = cs.CoreV1().ConfigMaps("monitoring").Get(context.Background(), "host-01", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Contains(t, cm.Data["snapshot.txt"], "a  b")
	assert.Equal(t, "table", cm.Data["format"])
	assert.NoError(t, w2.Close())
}

func TestNewConfigMapWriterUnknownFormat(t *testing.T) {
	w := NewConfigMapWriter("default", "snap", Format("xml"))
	assert.Equal(t, FormatJSON, w.format)
	assert.Equal(t, "json", w.extension())
}
