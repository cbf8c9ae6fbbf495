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

package strategy

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
)

// ErrCycle is wrapped by the error OrderSources returns for cyclic
// dependencies.
var ErrCycle = stderrors.New("cyclic source dependency")

// OrderSources returns keys in an order where every source runs after the
// sources it depends on. deps maps a key to the keys it waits for; keys
// outside the set are ignored since they belong to other tasks. Among the
// sources ready at the same time, the one listed first in hint runs first;
// sources missing from hint follow in lexical order.
func OrderSources(keys []string, deps map[string][]string, hint []string) ([]string, error) {
	inSet := make(map[string]bool, len(keys))
	for _, k := range keys {
		inSet[k] = true
	}

	rank := make(map[string]int, len(hint))
	for i, k := range hint {
		if _, seen := rank[k]; !seen {
			rank[k] = i
		}
	}
	less := func(a, b string) bool {
		ra, okA := rank[a]
		rb, okB := rank[b]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		default:
			return a < b
		}
	}

	pending := make(map[string]int, len(inSet))
	dependents := make(map[string][]string, len(inSet))
	for k := range inSet {
		pending[k] = 0
	}
	for from, tos := range deps {
		if !inSet[from] {
			continue
		}
		for _, to := range tos {
			if !inSet[to] || to == from || slices.Contains(dependents[to], from) {
				continue
			}
			dependents[to] = append(dependents[to], from)
			pending[from]++
		}
	}

	var ready []string
	for k, n := range pending {
		if n == 0 {
			ready = append(ready, k)
		}
	}

	order := make([]string, 0, len(inSet))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if less(ready[i], ready[best]) {
				best = i
			}
		}
		next := ready[best]
		ready = slices.Delete(ready, best, best+1)
		order = append(order, next)

		for _, d := range dependents[next] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) < len(inSet) {
		var stuck []string
		for k, n := range pending {
			if n > 0 {
				stuck = append(stuck, k)
			}
		}
		slices.Sort(stuck)
		return nil, errors.WrapWithContext(errors.ErrCodeCycle,
			fmt.Sprintf("sources %s depend on each other", strings.Join(stuck, ", ")),
			ErrCycle, map[string]any{"sources": stuck})
	}
	return order, nil
}

// CheckSourceOrder resolves the source order of every task of c and
// returns the first cycle found, annotated with the task scope.
func CheckSourceOrder(c *connector.Connector) error {
	check := func(t *connector.Task) error {
		if t == nil {
			return nil
		}
		if _, err := OrderSources(t.Sources.Keys(), t.Dependencies(), t.HintOrder()); err != nil {
			return errors.WrapWithContext(errors.ErrCodeCycle,
				fmt.Sprintf("connector %s: %s", c.ID, t.Scope()), err,
				map[string]any{"connector": c.ID, "task": t.Scope()})
		}
		return nil
	}

	if err := check(c.PreTask()); err != nil {
		return err
	}
	for _, monitorType := range c.MonitorTypes() {
		job := c.Monitors[monitorType]
		for _, t := range []*connector.Task{job.Discovery, job.Collect} {
			if err := check(t); err != nil {
				return err
			}
		}
	}
	return nil
}
