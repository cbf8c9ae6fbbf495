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

package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	hwerrors "github.com/NVIDIA/hwtelemetry/pkg/errors"
)

const lspci = `Slot Class Vendor Device
0000:17:00.0 "3D controller" "NVIDIA Corporation" "GH100"
0000:2a:00.0 "Ethernet controller" "Mellanox" "MT2910"
0000:3d:00.0 "3D controller" "NVIDIA Corporation" "GH100"
`

func fixedRunner(out string, err error) (Runner, *string) {
	var got string
	return func(_ context.Context, line string) ([]byte, error) {
		got = line
		return []byte(out), err
	}, &got
}

func TestHandle(t *testing.T) {
	run, got := fixedRunner(lspci, nil)
	h := NewHandler(run)

	table, err := h.Handle(context.Background(), connector.Source{
		CommandLine:   " lspci -mm ",
		BeginAtLine:   2,
		Keep:          "3D controller",
		Separator:     `"`,
		SelectColumns: "1,4",
	}, "gpu", nil)
	require.NoError(t, err)
	assert.Equal(t, "lspci -mm", *got)
	assert.Equal(t, [][]string{
		{"0000:17:00.0 ", "NVIDIA Corporation"},
		{"0000:3d:00.0 ", "NVIDIA Corporation"},
	}, table.Rows)
}

func TestHandleErrors(t *testing.T) {
	t.Run("empty command", func(t *testing.T) {
		_, err := NewHandler(nil).Handle(context.Background(), connector.Source{}, "c", nil)
		require.Error(t, err)
		assert.True(t, hwerrors.HasCode(err, hwerrors.ErrCodeConfiguration))
	})

	t.Run("command fails", func(t *testing.T) {
		run, _ := fixedRunner("", errors.New("exit status 1"))
		_, err := NewHandler(run).Handle(context.Background(), connector.Source{CommandLine: "false"}, "c", nil)
		require.Error(t, err)
		assert.True(t, hwerrors.HasCode(err, hwerrors.ErrCodeTransientProtocol))
	})

	t.Run("timeout", func(t *testing.T) {
		run := func(ctx context.Context, _ string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		_, err := NewHandler(run).Handle(context.Background(),
			connector.Source{CommandLine: "sleep 10", Timeout: 10 * time.Millisecond}, "c", nil)
		require.Error(t, err)
		assert.True(t, hwerrors.HasCode(err, hwerrors.ErrCodeTimeout))
	})

	t.Run("bad pattern", func(t *testing.T) {
		run, _ := fixedRunner("a\n", nil)
		_, err := NewHandler(run).Handle(context.Background(),
			connector.Source{CommandLine: "x", Keep: "("}, "c", nil)
		require.Error(t, err)
	})
}

func TestFilter(t *testing.T) {
	lines := []string{"header", "a 1", "", "b 2", "# c 3", "d 4"}
	tests := []struct {
		name       string
		begin, end int
		exclude    string
		keep       string
		want       []string
	}{
		{name: "all non-empty", want: []string{"header", "a 1", "b 2", "# c 3", "d 4"}},
		{name: "range", begin: 2, end: 4, want: []string{"a 1", "b 2"}},
		{name: "exclude", begin: 2, exclude: "^#", want: []string{"a 1", "b 2", "d 4"}},
		{name: "keep", keep: `\d$`, exclude: "^#", want: []string{"a 1", "b 2", "d 4"}},
		{name: "nothing left", keep: "zzz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(lines, tt.begin, tt.end, tt.exclude, tt.keep)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("  a  b\tc ", ""))
	assert.Equal(t, []string{"a", "", "b", "c"}, Split("a;;b,c", ";,"))
	assert.Equal(t, []string{""}, Split("", ";"))
}

func TestParseColumns(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{spec: ""},
		{spec: "2", want: []int{2}},
		{spec: "1, 3-5", want: []int{1, 3, 4, 5}},
		{spec: "0", wantErr: true},
		{spec: "5-3", wantErr: true},
		{spec: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseColumns(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect(t *testing.T) {
	row := []string{"a", "b", "c"}
	assert.Equal(t, row, Select(row, nil))
	assert.Equal(t, []string{"c", "a", ""}, Select(row, []int{3, 1, 5}))
}

func TestShellRunner(t *testing.T) {
	out, err := ShellRunner(context.Background(), "printf 'x;y\\n'")
	require.NoError(t, err)
	assert.Equal(t, "x;y\n", string(out))

	_, err = ShellRunner(context.Background(), "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLimitedWriter(t *testing.T) {
	var buf []byte
	w := &limitedWriter{w: writerFunc(func(p []byte) (int, error) { buf = append(buf, p...); return len(p), nil }), n: 3}
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, _ = w.Write([]byte("more"))
	assert.Equal(t, "hel", string(buf))
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
