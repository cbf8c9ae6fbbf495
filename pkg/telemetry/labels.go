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

package telemetry

import (
	"fmt"
	"sort"
	"strings"
)

// SplitMetricName splits `hw.status{state="ok", hw.type="disk"}` into its
// base name and labels. Names without a well-formed label block are
// returned unchanged with nil labels.
func SplitMetricName(name string) (string, map[string]string) {
	open := strings.IndexByte(name, '{')
	if open < 0 || !strings.HasSuffix(name, "}") {
		return name, nil
	}
	base := strings.TrimSpace(name[:open])
	labels, ok := parseLabels(name[open+1 : len(name)-1])
	if !ok {
		return name, nil
	}
	return base, labels
}

func parseLabels(body string) (map[string]string, bool) {
	labels := make(map[string]string)
	i := 0
	for {
		for i < len(body) && (body[i] == ' ' || body[i] == ',') {
			i++
		}
		if i >= len(body) {
			return labels, true
		}
		eq := strings.IndexByte(body[i:], '=')
		if eq < 0 {
			return nil, false
		}
		key := strings.TrimSpace(body[i : i+eq])
		i += eq + 1
		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i >= len(body) || body[i] != '"' {
			return nil, false
		}
		i++
		var val strings.Builder
		closed := false
		for i < len(body) {
			c := body[i]
			i++
			if c == '\\' && i < len(body) {
				val.WriteByte(body[i])
				i++
				continue
			}
			if c == '"' {
				closed = true
				break
			}
			val.WriteByte(c)
		}
		if !closed || key == "" {
			return nil, false
		}
		labels[key] = val.String()
	}
}

// MetricName renders a base name and labels, with labels sorted by key.
func MetricName(base string, labels map[string]string) string {
	if len(labels) == 0 {
		return base
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(labels[k], `"`, `\"`)
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, v))
	}
	return base + "{" + strings.Join(parts, ", ") + "}"
}
