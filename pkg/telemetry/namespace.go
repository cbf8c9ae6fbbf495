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

package telemetry

import (
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ConnectorNamespace is the per-connector scratch space of a host. It lives
// as long as the State, so source tables and the force-serialization lock
// survive from one cycle to the next.
type ConnectorNamespace struct {
	mu       sync.Mutex
	tables   map[string]Table
	statusOK bool
	statusAt bool

	lock *semaphore.Weighted
}

func newConnectorNamespace() *ConnectorNamespace {
	return &ConnectorNamespace{
		tables: make(map[string]Table),
		lock:   semaphore.NewWeighted(1),
	}
}

// SourceTable returns the table stored under key.
func (n *ConnectorNamespace) SourceTable(key string) (Table, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.tables[key]
	if !ok {
		return Table{}, false
	}
	return t.Clone(), true
}

// SetSourceTable stores a copy of t under key.
func (n *ConnectorNamespace) SetSourceTable(key string, t Table) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tables[key] = t.Clone()
}

// SourceKeys returns the stored table keys, sorted.
func (n *ConnectorNamespace) SourceKeys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, 0, len(n.tables))
	for k := range n.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StatusOK returns the last detection re-validation result and whether one
// has happened yet.
func (n *ConnectorNamespace) StatusOK() (ok, known bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.statusOK, n.statusAt
}

// SetStatusOK records a detection re-validation result.
func (n *ConnectorNamespace) SetStatusOK(ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusOK = ok
	n.statusAt = true
}

// SerializationLock is the connector's force-serialization lock: a FIFO
// weighted semaphore of weight 1.
func (n *ConnectorNamespace) SerializationLock() *semaphore.Weighted {
	return n.lock
}
