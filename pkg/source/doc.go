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

// Package source executes connector sources and detection criteria.
//
// The engine talks to protocols only through two interfaces, Processor and
// CriterionProcessor. Registry implements both by dispatching on the source
// type to a Handler:
//
//	reg := source.NewDefaultRegistry(cfg)
//	table := reg.ProcessSource(ctx, src, "storage-array", state, nil)
//
// Built-in types:
//   - static: the source value, one row per line, columns split by the
//     separator (default ";")
//   - reference: a copy of another table of the connector namespace
//   - file: see package file
//   - systemd: see package systemd
//   - snmp: see package snmp
//   - commandLine: see package command
//
// Handler errors and panics are logged and turn into an empty table; the
// caller never sees them. Before a handler runs, "${attribute::name}"
// references in the source fields are replaced with the monitor attributes
// passed by the caller.
//
// A criterion runs its source and matches the table text against the
// expected result, a multi-line regular expression. Without an expected
// result, any non-empty table succeeds.
package source
