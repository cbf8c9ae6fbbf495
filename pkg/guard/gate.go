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

package guard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
)

// Gate serializes protocol requests of a connector that must not overlap.
type Gate struct {
	hostname string
	timeout  time.Duration
}

// NewGate returns a gate waiting at most timeout for a connector lock.
// A non-positive timeout selects defaults.ForceSerializationLockTimeout.
func NewGate(hostname string, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = defaults.ForceSerializationLockTimeout
	}
	return &Gate{hostname: hostname, timeout: timeout}
}

// Timeout returns the bounded lock wait.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// Request identifies the work passing through the gate.
type Request struct {
	ConnectorID string
	SourceKey   string
	Serialize   bool
	Description string
}

// Run executes op. When req.Serialize is set, op runs while holding lock;
// if the lock cannot be taken within the gate timeout, or the wait is
// interrupted, def is returned and op never runs. An interrupt observed
// while waiting is left raised for the job that owns it.
func Run[T any](ctx context.Context, g *Gate, lock *semaphore.Weighted, req Request, def T,
	op func(context.Context) T) T {

	if !req.Serialize {
		return op(ctx)
	}

	log := slog.With(
		"host", g.hostname,
		"connector", req.ConnectorID,
		"source", req.SourceKey,
		"operation", req.Description)

	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	intr := InterruptFrom(ctx)
	if intr != nil {
		stop := make(chan struct{})
		defer close(stop)
		done := intr.Done()
		go func() {
			select {
			case <-done:
				cancel()
			case <-stop:
			case <-waitCtx.Done():
			}
		}()
	}

	start := time.Now()
	err := lock.Acquire(waitCtx, 1)
	gateWaitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case intr != nil && intr.Raised(), ctx.Err() != nil:
			gateTimeouts.WithLabelValues("interrupted").Inc()
			log.Warn("interrupted while waiting for force serialization lock")
		default:
			gateTimeouts.WithLabelValues("timeout").Inc()
			log.Warn("force serialization lock timeout",
				"error", errors.WrapWithContext(errors.ErrCodeConcurrencyTimeout,
					"lock wait expired", err, map[string]any{"timeout": g.timeout.String()}))
		}
		return def
	}
	defer lock.Release(1)

	return op(ctx)
}
