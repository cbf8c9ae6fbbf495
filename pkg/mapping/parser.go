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

package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse compiles one mapping expression.
//
//	disk-$1              template with a column reference
//	megaBit2Bit($3)      function call
//	rate(mebiByte2Byte($2))
//	"literal, with comma" quoted literal argument
//
// A call to an unknown function name is kept as literal text.
func Parse(expr string) (Node, error) {
	s := strings.TrimSpace(expr)
	if name, body, ok := splitCall(s); ok {
		fn, known := functions[name]
		if known {
			return parseCall(fn, body)
		}
	}
	return parseTemplate(s)
}

// splitCall recognizes `ident(...)` spanning the whole expression.
func splitCall(s string) (name, body string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	name = s[:open]
	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(i > 0 && isDigit) {
			return "", "", false
		}
	}
	closeIdx, err := matchingParen(s, open)
	if err != nil || closeIdx != len(s)-1 {
		return "", "", false
	}
	return name, s[open+1 : closeIdx], true
}

func matchingParen(s string, open int) (int, error) {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("unbalanced parentheses in %q", s)
}

func parseCall(fn *function, body string) (Node, error) {
	rawArgs, err := splitArgs(body)
	if err != nil {
		return nil, err
	}
	if len(rawArgs) != fn.arity {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", fn.name, fn.arity, len(rawArgs))
	}
	args := make([]Node, 0, len(rawArgs))
	for _, raw := range rawArgs {
		arg, err := parseArg(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.name, err)
		}
		args = append(args, arg)
	}
	return call{fn: fn, args: args}, nil
}

// splitArgs splits at top-level commas.
func splitArgs(body string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var (
		args    []string
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, body[start:i])
			start = i + 1
		}
	}
	if inQuote || depth != 0 {
		return nil, fmt.Errorf("malformed arguments %q", body)
	}
	return append(args, body[start:]), nil
}

func parseArg(raw string) (Node, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		text, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("bad quoted literal %s: %w", s, err)
		}
		return literal{text: text}, nil
	}
	return Parse(s)
}

// parseTemplate splits text into literals and $N column references.
// "$$" is a literal dollar sign.
func parseTemplate(s string) (Node, error) {
	var (
		parts []Node
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, literal{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '$' {
			lit.WriteByte('$')
			i++
			continue
		}
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i+1 {
			lit.WriteByte(c)
			continue
		}
		idx, _ := strconv.Atoi(s[i+1 : j])
		if idx < 1 {
			return nil, fmt.Errorf("column index must be at least 1 in %q", s)
		}
		flush()
		parts = append(parts, column{index: idx})
		i = j - 1
	}
	flush()

	switch len(parts) {
	case 0:
		return literal{}, nil
	case 1:
		return parts[0], nil
	default:
		return template{parts: parts}, nil
	}
}
