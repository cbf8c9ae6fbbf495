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

package defaults

import "time"

// Scheduler settings for the per-connector job pool.
const (
	// MaxJobWorkers is the number of non-priority monitor jobs that may run
	// at once for a single connector.
	MaxJobWorkers = 20

	// JobPoolTimeout bounds the wait for the non-priority job pool.
	// In-flight jobs are not canceled when it expires.
	JobPoolTimeout = 15 * time.Minute
)

// Source execution guards.
const (
	// ForceSerializationLockTimeout is the maximum wait for a connector's
	// force-serialization lock.
	ForceSerializationLockTimeout = 2 * time.Minute

	// SourceMaxRetries is the number of extra attempts for a source whose
	// table unexpectedly came back empty.
	SourceMaxRetries = 1

	// SourceRetryDelay is the pause between two source attempts.
	SourceRetryDelay = 1 * time.Second
)

// Cycle cadence for the daemon.
const (
	// CollectInterval is the time between two collect passes.
	CollectInterval = 2 * time.Minute

	// DiscoveryInterval is the time between two discovery passes.
	DiscoveryInterval = 30 * time.Minute
)

// Protocol timeouts.
const (
	// SNMPTimeout is the default timeout of a single SNMP request.
	SNMPTimeout = 10 * time.Second

	// SNMPRequestsPerSecond paces requests sent to the same agent.
	SNMPRequestsPerSecond = 50

	// SystemdTimeout bounds a D-Bus property query.
	SystemdTimeout = 10 * time.Second

	// CommandTimeout bounds a command line source that sets no timeout.
	CommandTimeout = 30 * time.Second
)

// CommandMaxOutput caps the bytes kept from a command line source.
const CommandMaxOutput = 4 << 20

// Server timeouts for the health and metrics endpoint.
const (
	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// ConnectorStoreTimeout bounds a Kubernetes ConfigMap read.
const ConnectorStoreTimeout = 30 * time.Second

// SnapshotWriteTimeout bounds a Kubernetes ConfigMap apply of a snapshot.
const SnapshotWriteTimeout = 60 * time.Second

// Server defaults.
const (
	// ServerPort is the default port of the health and metrics endpoint.
	ServerPort = 9464

	// ServerRateLimit is the sustained request rate of the API routes.
	ServerRateLimit = 20

	// ServerRateLimitBurst is the burst size of the API routes.
	ServerRateLimitBurst = 40
)
