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

package connector

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/hwtelemetry/pkg/errors"
)

// Job names inside a MonitorJob.
const (
	JobDiscovery = "discovery"
	JobCollect   = "collect"
)

// Connector is an immutable, declarative recipe for monitoring one kind of
// target. It is loaded once per host and shared read-only by all jobs.
type Connector struct {
	// ID is the compiled file name of the connector.
	ID          string                      `json:"id" yaml:"-"`
	DisplayName string                      `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Detection   *Detection                  `json:"detection,omitempty" yaml:"detection,omitempty"`
	Metrics     map[string]MetricDefinition `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Pre         SourceSet                   `json:"-" yaml:"pre,omitempty"`
	Monitors    map[string]*MonitorJob      `json:"-" yaml:"monitors,omitempty"`

	pre *Task
}

// Detection holds the criteria that decide whether the connector applies.
type Detection struct {
	AppliesTo []string    `json:"appliesTo,omitempty" yaml:"appliesTo,omitempty"`
	Criteria  []Criterion `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// Criterion is a detection test: a source whose table text must match
// ExpectedResult (a regular expression). Empty ExpectedResult only requires
// a non-empty table.
type Criterion struct {
	Source         `yaml:",inline"`
	ExpectedResult string `json:"expectedResult,omitempty" yaml:"expectedResult,omitempty"`
}

// MonitorJob holds the discovery and collect tasks of one monitor type.
type MonitorJob struct {
	Keys      []string                    `yaml:"keys,omitempty"`
	Metrics   map[string]MetricDefinition `yaml:"metrics,omitempty"`
	Discovery *Task                       `yaml:"discovery,omitempty"`
	Collect   *Task                       `yaml:"collect,omitempty"`
}

// IdentifyingKeys returns the attributes used to match collected rows to
// discovered monitors.
func (j *MonitorJob) IdentifyingKeys() []string {
	if len(j.Keys) == 0 {
		return []string{"id"}
	}
	return j.Keys
}

// Task returns the discovery or collect task by job name.
func (j *MonitorJob) Task(jobName string) *Task {
	switch jobName {
	case JobDiscovery:
		return j.Discovery
	case JobCollect:
		return j.Collect
	default:
		return nil
	}
}

// Parse decodes a connector definition. id is the connector identity,
// normally the file name without extension.
func Parse(id string, data []byte) (*Connector, error) {
	var c Connector
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfiguration,
			"failed to parse connector", err, map[string]any{"connector": id})
	}
	c.ID = id
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a connector programmatically and prepares its tasks.
func New(id string, pre SourceSet, monitors map[string]*MonitorJob) (*Connector, error) {
	c := &Connector{ID: id, Pre: pre, Monitors: monitors}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// init assigns every task its namespace scope and checks mappings.
func (c *Connector) init() error {
	if c.ID == "" {
		return errors.New(errors.ErrCodeConfiguration, "connector id is required")
	}
	c.pre = &Task{Sources: c.Pre, scope: "pre"}
	for monitorType, job := range c.Monitors {
		if job == nil {
			return errors.NewWithContext(errors.ErrCodeConfiguration, "empty monitor job",
				map[string]any{"connector": c.ID, "monitorType": monitorType})
		}
		for _, name := range []string{JobDiscovery, JobCollect} {
			t := job.Task(name)
			if t == nil {
				continue
			}
			t.scope = fmt.Sprintf("monitors.%s.%s", monitorType, name)
			if t.Mapping != nil && strings.TrimSpace(t.Mapping.Source) == "" {
				return errors.NewWithContext(errors.ErrCodeConfiguration, "mapping without source",
					map[string]any{"connector": c.ID, "monitorType": monitorType, "job": name})
			}
		}
	}
	return nil
}

// PreTask exposes the connector-level pre sources as a task.
func (c *Connector) PreTask() *Task {
	if c.pre == nil {
		return &Task{Sources: c.Pre, scope: "pre"}
	}
	return c.pre
}

// MonitorTypes returns the monitor types this connector defines, sorted.
func (c *Connector) MonitorTypes() []string {
	types := make([]string, 0, len(c.Monitors))
	for t := range c.Monitors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HasMonitorType reports whether the connector defines a job for monitorType.
func (c *Connector) HasMonitorType(monitorType string) bool {
	_, ok := c.Monitors[monitorType]
	return ok
}

// MetricDefinition resolves a metric declaration. A declaration on the
// monitor job overrides the connector-level one.
func (c *Connector) MetricDefinition(monitorType, name string) (MetricDefinition, bool) {
	if job, ok := c.Monitors[monitorType]; ok && job != nil {
		if def, ok := job.Metrics[name]; ok {
			return def, true
		}
	}
	def, ok := c.Metrics[name]
	return def, ok
}
