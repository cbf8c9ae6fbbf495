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

package source

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// Processor executes one source and returns its table. Implementations are
// safe for concurrent use and return an empty table on failure.
type Processor interface {
	ProcessSource(ctx context.Context, src connector.Source, connectorID string,
		state *telemetry.State, attrs map[string]string) telemetry.Table
}

// CriterionProcessor evaluates one detection criterion.
type CriterionProcessor interface {
	ProcessCriterion(ctx context.Context, c connector.Criterion, connectorID string,
		state *telemetry.State) TestResult
}

// TestResult is the outcome of a criterion.
type TestResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Handler produces the table of one source type.
type Handler interface {
	Handle(ctx context.Context, src connector.Source, connectorID string, state *telemetry.State) (telemetry.Table, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, src connector.Source, connectorID string, state *telemetry.State) (telemetry.Table, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, src connector.Source, connectorID string,
	state *telemetry.State) (telemetry.Table, error) {
	return f(ctx, src, connectorID, state)
}

// Registry dispatches sources and criteria to the handler registered for
// their type. It implements both Processor and CriterionProcessor.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	patterns sync.Map // expectedResult -> *regexp.Regexp
}

// NewRegistry returns a registry with the static and reference handlers.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register(TypeStatic, HandlerFunc(handleStatic))
	r.Register(TypeReference, HandlerFunc(handleReference))
	return r
}

// Register binds a handler to a source type, replacing any previous one.
func (r *Registry) Register(sourceType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(sourceType)] = h
}

// Types returns the registered source types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

func (r *Registry) handler(sourceType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(sourceType)]
	return h, ok
}

// ProcessSource implements Processor. Attribute references in the source
// fields are replaced with attrs before the handler runs.
func (r *Registry) ProcessSource(ctx context.Context, src connector.Source, connectorID string,
	state *telemetry.State, attrs map[string]string) (table telemetry.Table) {

	log := slog.With("host", state.Hostname(), "connector", connectorID, "source", src.Key, "type", src.Type)

	h, ok := r.handler(src.Type)
	if !ok {
		sourceTables.WithLabelValues(src.Type, "unsupported").Inc()
		log.Warn("no processor for source type")
		return telemetry.EmptyTable()
	}

	defer func() {
		if p := recover(); p != nil {
			sourceTables.WithLabelValues(src.Type, "panic").Inc()
			log.Error("source processor panicked", "panic", fmt.Sprint(p))
			table = telemetry.EmptyTable()
		}
	}()

	t, err := h.Handle(ctx, SubstituteAttributes(src, attrs), connectorID, state)
	if err != nil {
		sourceTables.WithLabelValues(src.Type, "error").Inc()
		log.Warn("source failed",
			"error", errors.Wrap(errors.ErrCodeTransientProtocol, "source processing failed", err))
		return telemetry.EmptyTable()
	}
	if t.IsEmpty() {
		sourceTables.WithLabelValues(src.Type, "empty").Inc()
	} else {
		sourceTables.WithLabelValues(src.Type, "ok").Inc()
	}
	log.Debug("source processed", "rows", len(t.Rows))
	return t
}

// ProcessCriterion implements CriterionProcessor. The criterion's source
// runs like any other; the table text must match ExpectedResult, or be
// non-empty when no result is expected.
func (r *Registry) ProcessCriterion(ctx context.Context, c connector.Criterion, connectorID string,
	state *telemetry.State) TestResult {

	t := r.ProcessSource(ctx, c.Source, connectorID, state, nil)
	text := t.Text()

	if c.ExpectedResult == "" {
		if t.IsEmpty() {
			return TestResult{Result: text, Message: fmt.Sprintf("%s criterion returned no data", c.Type)}
		}
		return TestResult{Success: true, Result: text, Message: fmt.Sprintf("%s criterion succeeded", c.Type)}
	}

	re, err := r.pattern(c.ExpectedResult)
	if err != nil {
		return TestResult{
			Result:  text,
			Message: fmt.Sprintf("invalid expected result %q", c.ExpectedResult),
			Err:     errors.Wrap(errors.ErrCodeConfiguration, "invalid expected result", err),
		}
	}
	if !re.MatchString(text) {
		return TestResult{
			Result:  text,
			Message: fmt.Sprintf("%s criterion result does not match %q", c.Type, c.ExpectedResult),
		}
	}
	return TestResult{
		Success: true,
		Result:  text,
		Message: fmt.Sprintf("%s criterion matched %q", c.Type, c.ExpectedResult),
	}
}

func (r *Registry) pattern(expr string) (*regexp.Regexp, error) {
	if re, ok := r.patterns.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?m)" + expr)
	if err != nil {
		return nil, err
	}
	r.patterns.Store(expr, re)
	return re, nil
}
