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
	"sync"

	"github.com/NVIDIA/hwtelemetry/pkg/errors"
)

// ErrStopped is returned by Retry when the job's interrupt was stopped.
var ErrStopped = errors.New(errors.ErrCodeConcurrencyTimeout, "job stopped after its pool wait expired")

// Interrupt is a resettable cancellation signal owned by one job. Unlike a
// context cancellation it can be cleared, which lets the retry guard start
// every attempt with a clean signal.
type Interrupt struct {
	mu      sync.Mutex
	raised  bool
	stopped bool
	ch      chan struct{}
}

// NewInterrupt returns a cleared signal.
func NewInterrupt() *Interrupt {
	return &Interrupt{ch: make(chan struct{})}
}

// Raise sets the signal. Raising a raised signal is a no-op.
func (i *Interrupt) Raise() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.raised {
		i.raised = true
		close(i.ch)
	}
}

// Stop raises the signal for good: Clear no longer resets it.
func (i *Interrupt) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopped = true
	if !i.raised {
		i.raised = true
		close(i.ch)
	}
}

// Stopped reports whether Stop was called.
func (i *Interrupt) Stopped() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopped
}

// Clear resets a raised signal that was not stopped and reports whether it
// was raised.
func (i *Interrupt) Clear() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	was := i.raised
	if was && !i.stopped {
		i.raised = false
		i.ch = make(chan struct{})
	}
	return was
}

// Raised reports whether the signal is set.
func (i *Interrupt) Raised() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.raised
}

// Done returns a channel closed when the signal is raised. A channel
// obtained before Clear stays closed.
func (i *Interrupt) Done() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ch
}

type interruptKey struct{}

// WithInterrupt attaches i to ctx.
func WithInterrupt(ctx context.Context, i *Interrupt) context.Context {
	return context.WithValue(ctx, interruptKey{}, i)
}

// InterruptFrom returns the signal attached to ctx, or nil.
func InterruptFrom(ctx context.Context) *Interrupt {
	i, _ := ctx.Value(interruptKey{}).(*Interrupt)
	return i
}
