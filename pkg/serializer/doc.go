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

// Package serializer writes telemetry snapshots and cycle reports.
//
// Three formats are supported: JSON, YAML and a table rendered with
// text/tabwriter. Values implementing Tabular choose their own columns;
// anything else is flattened into FIELD/VALUE rows.
//
// NewFileWriterOrStdout selects the destination from a path:
//
//	s := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "cm://monitoring/server-01")
//	if err := s.Serialize(ctx, state.Snapshot(time.Now())); err != nil {
//		return err
//	}
//	if c, ok := s.(serializer.Closer); ok {
//		c.Close()
//	}
//
// An empty path writes to stdout. A cm://namespace/name path applies a
// ConfigMap with server-side apply. Any other path creates a file.
package serializer
