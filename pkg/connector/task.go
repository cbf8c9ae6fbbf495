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
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CollectType selects how a collect task maps rows to monitors.
type CollectType string

const (
	// MultiInstance iterates the mapping table and matches each row to a
	// discovered monitor by its identifying keys.
	MultiInstance CollectType = "multiInstance"
	// MonoInstance runs the sources once per discovered monitor, with the
	// monitor's attributes available for substitution.
	MonoInstance CollectType = "monoInstance"
)

const sourceRefPrefix = "${source::"

// Task is one discovery or collect unit of a monitor job.
type Task struct {
	Sources SourceSet `yaml:"sources,omitempty"`
	// ExecutionOrder is the authoring hint used to break ties between
	// sources that are ready at the same time. Defaults to the order in
	// which sources appear in the document.
	ExecutionOrder []string            `yaml:"executionOrder,omitempty"`
	DependsOn      map[string][]string `yaml:"sourceDep,omitempty"`
	Mapping        *Mapping            `yaml:"mapping,omitempty"`
	Type           CollectType         `yaml:"type,omitempty"`

	scope string
}

// Mapping declares how each row of a source table becomes monitor data.
type Mapping struct {
	Source               string            `yaml:"source"`
	Attributes           map[string]string `yaml:"attributes,omitempty"`
	Metrics              map[string]string `yaml:"metrics,omitempty"`
	LegacyTextParameters map[string]string `yaml:"legacyTextParameters,omitempty"`
}

// Source is one protocol query. The Type field selects the processor; the
// remaining fields are interpreted by that processor.
type Source struct {
	Key                string   `json:"key,omitempty" yaml:"-"`
	Type               string   `json:"type" yaml:"type"`
	ForceSerialization bool     `json:"forceSerialization,omitempty" yaml:"forceSerialization,omitempty"`
	DependsOn          []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`

	Value      string   `json:"value,omitempty" yaml:"value,omitempty"`
	Path       string   `json:"path,omitempty" yaml:"path,omitempty"`
	Separator  string   `json:"separator,omitempty" yaml:"separator,omitempty"`
	Ref        string   `json:"ref,omitempty" yaml:"ref,omitempty"`
	Units      []string `json:"units,omitempty" yaml:"units,omitempty"`
	Properties []string `json:"properties,omitempty" yaml:"properties,omitempty"`
	OID        string   `json:"oid,omitempty" yaml:"oid,omitempty"`
	Mode       string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Columns    []string `json:"columns,omitempty" yaml:"columns,omitempty"`

	// Command line sources.
	CommandLine   string        `json:"commandLine,omitempty" yaml:"commandLine,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	BeginAtLine   int           `json:"beginAtLineNumber,omitempty" yaml:"beginAtLineNumber,omitempty"`
	EndAtLine     int           `json:"endAtLineNumber,omitempty" yaml:"endAtLineNumber,omitempty"`
	Keep          string        `json:"keep,omitempty" yaml:"keep,omitempty"`
	Exclude       string        `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	SelectColumns string        `json:"selectColumns,omitempty" yaml:"selectColumns,omitempty"`
}

// SourceSet is an ordered map of sources keyed by source key.
type SourceSet struct {
	keys  []string
	byKey map[string]Source
}

// NewSourceSet builds a set from sources in the given order. Each source
// must carry its Key.
func NewSourceSet(sources ...Source) SourceSet {
	s := SourceSet{byKey: make(map[string]Source, len(sources))}
	for _, src := range sources {
		if _, dup := s.byKey[src.Key]; !dup {
			s.keys = append(s.keys, src.Key)
		}
		s.byKey[src.Key] = src
	}
	return s
}

// UnmarshalYAML keeps the document order of the source keys.
func (s *SourceSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sources must be a mapping, got line %d", node.Line)
	}
	sources := make([]Source, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var src Source
		if err := node.Content[i+1].Decode(&src); err != nil {
			return fmt.Errorf("source %q: %w", node.Content[i].Value, err)
		}
		src.Key = node.Content[i].Value
		sources = append(sources, src)
	}
	*s = NewSourceSet(sources...)
	return nil
}

// Keys returns the source keys in document order.
func (s SourceSet) Keys() []string {
	return slices.Clone(s.keys)
}

// Get returns the source stored under key.
func (s SourceSet) Get(key string) (Source, bool) {
	src, ok := s.byKey[key]
	return src, ok
}

// Len returns the number of sources.
func (s SourceSet) Len() int {
	return len(s.keys)
}

// Scope is the namespace prefix of this task's tables, for example
// "monitors.disk.discovery".
func (t *Task) Scope() string {
	return t.scope
}

// QualifiedKey returns the namespace key under which a source table of
// this task is stored.
func (t *Task) QualifiedKey(sourceKey string) string {
	if t.scope == "" {
		return sourceKey
	}
	return t.scope + ".sources." + sourceKey
}

// HintOrder returns the authoring order used for tie-breaking.
func (t *Task) HintOrder() []string {
	if len(t.ExecutionOrder) > 0 {
		return t.ExecutionOrder
	}
	return t.Sources.Keys()
}

// CollectType returns the collect type, defaulting to multi-instance.
func (t *Task) CollectType() CollectType {
	if t.Type == "" {
		return MultiInstance
	}
	return t.Type
}

// Dependencies returns source key -> keys it must run after. It merges the
// explicit sourceDep map, each source's dependsOn list and reference
// sources that point into this task.
func (t *Task) Dependencies() map[string][]string {
	deps := make(map[string][]string, t.Sources.Len())
	add := func(from, to string) {
		if from == to || slices.Contains(deps[from], to) {
			return
		}
		deps[from] = append(deps[from], to)
	}
	for from, tos := range t.DependsOn {
		for _, to := range tos {
			add(from, to)
		}
	}
	for _, key := range t.Sources.keys {
		src := t.Sources.byKey[key]
		for _, to := range src.DependsOn {
			add(key, to)
		}
		if src.Ref != "" {
			if local, ok := t.LocalKey(src.Ref); ok {
				add(key, local)
			}
		}
	}
	return deps
}

// LocalKey resolves a source reference to a key of this task. The
// reference may be a plain key, "${source::key}" or a fully qualified
// namespace key.
func (t *Task) LocalKey(ref string) (string, bool) {
	key := TrimSourceRef(ref)
	if _, ok := t.Sources.byKey[key]; ok {
		return key, true
	}
	prefix := t.scope + ".sources."
	if t.scope != "" && strings.HasPrefix(key, prefix) {
		local := strings.TrimPrefix(key, prefix)
		if _, ok := t.Sources.byKey[local]; ok {
			return local, true
		}
	}
	return "", false
}

// TrimSourceRef strips the "${source::...}" wrapper from a reference.
func TrimSourceRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, sourceRefPrefix) && strings.HasSuffix(ref, "}") {
		return strings.TrimSuffix(strings.TrimPrefix(ref, sourceRefPrefix), "}")
	}
	return ref
}
