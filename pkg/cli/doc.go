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

// Package cli implements the hwtd command line.
//
// # Commands
//
// run - collect periodically:
//
//	hwtd run -c /etc/hwtd/host.yaml --connectors /etc/hwtd/connectors
//
// Runs a cycle every collect interval, serves /healthz, /readyz, /metrics
// and /v1/snapshot, and reports readiness to systemd when started as a
// Type=notify unit.
//
// collect - one cycle:
//
//	hwtd collect --hostname array-01 --format table
//	hwtd collect --report --output report.json
//
// connectors - list and check connectors:
//
//	hwtd connectors --connectors cm://monitoring/hwt-connectors --detect
//
// # Global Flags
//
//	--log-level   debug, info, warn, error (HWT_LOG_LEVEL, LOG_LEVEL)
//	--version     print version information
//
// # Engine Flags
//
//	--config, -c    host configuration file (HWT_CONFIG)
//	--hostname      monitored host (HWT_HOSTNAME, default: local host name)
//	--connectors    directory or cm://namespace/name (HWT_CONNECTORS)
//	--kubeconfig    for ConfigMap access (HWT_KUBECONFIG, KUBECONFIG)
//	--sequential    disable the job worker pool (HWT_SEQUENTIAL)
//
// # Output
//
// --output takes a file path or cm://namespace/name; stdout by default.
// --format is yaml (default), json or table.
//
// # Exit Codes
//
//	0  success, or stopped by SIGINT/SIGTERM
//	1  invalid arguments, configuration or connector errors
package cli
