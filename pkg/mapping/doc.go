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

// Package mapping turns one row of a source table into attributes, metrics
// and legacy text parameters.
//
// Mapping expressions are parsed once per connector mapping into a small
// AST and evaluated per row:
//
//	attributes:
//	  id: $1
//	  name: disk-$1
//	metrics:
//	  hw.network.bandwidth.limit: megaBit2Bit($4)
//	  hw.errors: fakeCounter($5)
//
// Evaluation happens in two passes. The context-free pass runs before the
// row is matched to a monitor. The context pass needs the resolved monitor
// because rate, fakeCounter and keepPrevious read values stored on it.
// Callers merge the context results over the context-free ones. Entries
// that evaluate to a blank value are dropped.
package mapping
