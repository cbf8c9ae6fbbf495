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

package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewParser(t *testing.T) {
	p := NewParser()
	assert.Equal(t, "\n", p.delimiter)
	assert.Equal(t, 1<<20, p.maxSize)
	assert.True(t, p.skipComments)
	assert.Equal(t, "=", p.kvDelimiter)

	p = NewParser(WithDelimiter(";"), WithMaxSize(10), WithSkipComments(false), WithKVDelimiter(":"), WithVTrimChars(`"`))
	assert.Equal(t, ";", p.delimiter)
	assert.Equal(t, 10, p.maxSize)
	assert.False(t, p.skipComments)
	assert.Equal(t, ":", p.kvDelimiter)
	assert.Equal(t, `"`, p.vTrimChars)
}

func TestGetLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    []Option
		want    []string
		wantErr bool
	}{
		{
			name:    "skips blanks and comments",
			content: "# header\nsda 100\n\n  sdb 200  \n",
			want:    []string{"sda 100", "sdb 200"},
		},
		{
			name:    "keeps comments when asked",
			content: "# header\nsda",
			opts:    []Option{WithSkipComments(false)},
			want:    []string{"# header", "sda"},
		},
		{
			name:    "too large",
			content: strings.Repeat("x", 32),
			opts:    []Option{WithMaxSize(8)},
			wantErr: true,
		},
		{
			name:    "invalid utf8",
			content: string([]byte{0xff, 0xfe}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser(tt.opts...).GetLines(writeFile(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewParser().GetLines("")
	assert.Error(t, err)
}

func TestGetMap(t *testing.T) {
	path := writeFile(t, "NAME=\"Ubuntu\"\nVERSION_ID=24.04\nFLAG\n")
	got, err := NewParser(WithVTrimChars(`"`)).GetMap(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"NAME": "Ubuntu", "VERSION_ID": "24.04", "FLAG": ""}, got)
}

func TestHandle(t *testing.T) {
	state := telemetry.NewState(nil)
	h := NewHandler()

	path := writeFile(t, "sda 100 ok\nsdb 200 failed\n")
	table, err := h.Handle(context.Background(), connector.Source{Type: "file", Path: path}, "c1", state)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sda", "100", "ok"}, {"sdb", "200", "failed"}}, table.Rows)

	path = writeFile(t, "sda;100\n")
	table, err = h.Handle(context.Background(), connector.Source{Type: "file", Path: path, Separator: ";"}, "c1", state)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sda", "100"}}, table.Rows)

	path = writeFile(t, "b=2\na=1\n")
	table, err = h.Handle(context.Background(), connector.Source{Type: "file", Path: path, Mode: ModeKeyValue}, "c1", state)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}}, table.Rows)

	_, err = h.Handle(context.Background(), connector.Source{Type: "file", Path: "/does/not/exist"}, "c1", state)
	assert.Error(t, err)
}
