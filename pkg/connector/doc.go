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

// Package connector defines the declarative connector model and the
// stores that load it.
//
// A connector is parsed once from YAML and then shared read-only by every
// job of a host. Source keys keep their document order, which becomes the
// tie-breaking hint of the source dependency resolver:
//
//	monitors:
//	  disk:
//	    keys: [id]
//	    discovery:
//	      sources:
//	        list:
//	          type: file
//	          path: /proc/partitions
//	      mapping:
//	        source: list
//	        attributes:
//	          id: $4
//
// Every task knows its namespace scope ("monitors.disk.discovery"), so its
// tables can be stored in the connector namespace under a qualified key and
// referenced from other tasks as "${source::monitors.disk.discovery.sources.list}".
//
// Stores:
//   - DirectoryStore reads *.yaml files from a directory
//   - ConfigMapStore reads data keys of a Kubernetes ConfigMap
package connector
