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
	"strings"

	"github.com/alessio/shellescape"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
)

const (
	attributeRefPrefix = "${attribute::"
	refSuffix          = "}"
)

// SubstituteAttributes returns a copy of src where every
// "${attribute::name}" reference in its text fields is replaced with the
// matching value of attrs. Unknown attributes resolve to an empty string.
// Values placed in CommandLine are shell-quoted so an attribute reported by
// a device is always a single word; references there must not be quoted by
// the connector itself.
func SubstituteAttributes(src connector.Source, attrs map[string]string) connector.Source {
	if len(attrs) == 0 {
		return src
	}
	sub := func(s string) string { return substitute(s, attrs, nil) }
	subAll := func(in []string) []string {
		if in == nil {
			return nil
		}
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = sub(s)
		}
		return out
	}

	src.Value = sub(src.Value)
	src.Path = sub(src.Path)
	src.Ref = sub(src.Ref)
	src.OID = sub(src.OID)
	src.CommandLine = substitute(src.CommandLine, attrs, shellescape.Quote)
	src.Units = subAll(src.Units)
	src.Properties = subAll(src.Properties)
	src.Columns = subAll(src.Columns)
	return src
}

func substitute(s string, attrs map[string]string, quote func(string) string) string {
	if !strings.Contains(s, attributeRefPrefix) {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, attributeRefPrefix)
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start:], refSuffix)
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		value := attrs[s[start+len(attributeRefPrefix):start+end]]
		if quote != nil {
			value = quote(value)
		}
		b.WriteString(s[:start])
		b.WriteString(value)
		s = s[start+end+len(refSuffix):]
	}
}
