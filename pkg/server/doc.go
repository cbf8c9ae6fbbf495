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

// Package server exposes the daemon over HTTP.
//
// # Routes
//
//	GET /              name, version, readiness and route list
//	GET /healthz       liveness; always 200 while the process serves
//	GET /readyz        503 until the first cycle finishes, or when cycles go stale
//	GET /metrics       Prometheus exposition of the hwt_* self-monitoring metrics
//	GET /v1/snapshot   the monitor graph as json, yaml or table (?format=, ?type=)
//
// API routes pass through request id, rate limit (golang.org/x/time/rate),
// panic recovery and request logging middleware, and are measured with the
// hwt_http_* metrics. Probes and /metrics bypass the middleware so that
// scraping never competes with API traffic for tokens.
//
// # Usage
//
//	srv := server.NewServer(server.NewConfig(), server.WithSnapshotSource(state))
//	go srv.Start(ctx)
//	...
//	srv.RecordCycle(res.ID, time.Now(), res.Discovery, err)
//
// Errors are written as ErrorResponse bodies. WriteStructuredError maps
// the code of a pkg/errors StructuredError to an HTTP status.
package server
