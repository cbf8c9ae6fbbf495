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

// Package guard provides the two wrappers every source request goes through.
//
// Retry re-runs an operation that returned a *RetryableError, clearing the
// job's Interrupt signal before each attempt:
//
//	table, err := guard.Retry(ctx, fetch, 1, telemetry.EmptyTable(),
//	    guard.WithDelay(time.Second), guard.WithDescription("source"))
//
// Run holds a connector's force-serialization lock around an operation when
// the source asks for it, waiting a bounded time:
//
//	table := guard.Run(ctx, gate, ns.SerializationLock(), req, telemetry.EmptyTable(), query)
//
// The lock is a FIFO weighted semaphore stored in the connector namespace,
// so it is shared by all jobs of the connector and survives across cycles.
package guard
