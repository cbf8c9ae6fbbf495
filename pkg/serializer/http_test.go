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

package serializer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespond(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondJSON(rec, http.StatusAccepted, map[string]string{"status": "ok"})
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var got map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "ok", got["status"])
	})

	t.Run("yaml", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Respond(rec, http.StatusOK, FormatYAML, map[string]string{"status": "ok"})
		assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
		assert.Equal(t, "status: ok\n", rec.Body.String())
	})

	t.Run("encoding failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondJSON(rec, http.StatusOK, make(chan int))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
