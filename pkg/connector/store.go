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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/k8s/client"
)

// Store supplies the connectors that apply to a host.
type Store interface {
	ConnectorsForHost(ctx context.Context, hostID string) ([]*Connector, error)
}

// DirectoryStore loads every *.yaml or *.yml file of a directory. The file
// name without extension is the connector id.
type DirectoryStore struct {
	Dir string
	// Include restricts the loaded connector ids. Empty loads all.
	Include []string
}

// NewDirectoryStore returns a store reading dir.
func NewDirectoryStore(dir string, include []string) *DirectoryStore {
	return &DirectoryStore{Dir: dir, Include: include}
}

// ConnectorsForHost implements Store.
func (s *DirectoryStore) ConnectorsForHost(ctx context.Context, hostID string) ([]*Connector, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration,
			fmt.Sprintf("failed to read connector directory %s", s.Dir), err)
	}

	var out []*Connector
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, ok := connectorID(e.Name())
		if e.IsDir() || !ok || !s.included(id) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration,
				fmt.Sprintf("failed to read connector %s", id), err)
		}
		c, err := Parse(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	sortByID(out)
	slog.Debug("connectors loaded", "host", hostID, "dir", s.Dir, "count", len(out))
	return out, nil
}

func (s *DirectoryStore) included(id string) bool {
	return len(s.Include) == 0 || slices.Contains(s.Include, id)
}

// ConfigMapStore loads connectors from the data keys of a Kubernetes
// ConfigMap. Each key "<id>.yaml" holds one connector.
type ConfigMapStore struct {
	Client    client.Interface
	Namespace string
	Name      string
	Include   []string
}

// NewConfigMapStore returns a store backed by the shared Kubernetes client.
func NewConfigMapStore(namespace, name string, include []string) (*ConfigMapStore, error) {
	c, _, err := client.GetKubeClient()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to get kubernetes client", err)
	}
	return &ConfigMapStore{Client: c, Namespace: namespace, Name: name, Include: include}, nil
}

// ConnectorsForHost implements Store.
func (s *ConfigMapStore) ConnectorsForHost(ctx context.Context, hostID string) ([]*Connector, error) {
	readCtx, cancel := context.WithTimeout(ctx, defaults.ConnectorStoreTimeout)
	defer cancel()

	cm, err := s.Client.CoreV1().ConfigMaps(s.Namespace).Get(readCtx, s.Name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to read connector configmap", err,
			map[string]any{"namespace": s.Namespace, "name": s.Name})
	}

	var out []*Connector
	for key, data := range cm.Data {
		id, ok := connectorID(key)
		if !ok || !(len(s.Include) == 0 || slices.Contains(s.Include, id)) {
			continue
		}
		c, err := Parse(id, []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	sortByID(out)
	slog.Debug("connectors loaded", "host", hostID, "configmap", s.Namespace+"/"+s.Name, "count", len(out))
	return out, nil
}

func connectorID(fileName string) (string, bool) {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(fileName, ext) {
			id := strings.TrimSuffix(fileName, ext)
			return id, id != ""
		}
	}
	return "", false
}

func sortByID(cs []*Connector) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
