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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"

	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/k8s/client"
)

// ConfigMapURIScheme prefixes output paths that target a ConfigMap.
const ConfigMapURIScheme = "cm://"

const fieldManager = "hwtd"

// ConfigMapWriter applies serialized data to a Kubernetes ConfigMap.
// The ConfigMap is created if it doesn't exist, or updated if it does.
type ConfigMapWriter struct {
	namespace string
	name      string
	format    Format
	client    client.Interface
	now       func() time.Time
}

// ConfigMapOption configures a ConfigMapWriter.
type ConfigMapOption func(*ConfigMapWriter)

// WithKubeClient uses c instead of the shared client.
func WithKubeClient(c client.Interface) ConfigMapOption {
	return func(w *ConfigMapWriter) {
		w.client = c
	}
}

// NewConfigMapWriter creates a new ConfigMapWriter that writes to the specified
// namespace and ConfigMap name in the given format.
func NewConfigMapWriter(namespace, name string, format Format, opts ...ConfigMapOption) *ConfigMapWriter {
	w := &ConfigMapWriter{
		namespace: namespace,
		name:      name,
		format:    knownOrJSON(format),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Serialize applies v to the ConfigMap. The ConfigMap will have:
//   - data.snapshot.{json|yaml|txt}: the serialized content
//   - data.format: the format used
//   - data.timestamp: RFC 3339 time of the snapshot
//
// Values with a Timestamp() time.Time method supply their own timestamp,
// and values with a Host() string method are labeled with the host name.
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.SnapshotWriteTimeout)
	defer cancel()

	c := w.client
	if c == nil {
		var err error
		c, _, err = client.GetKubeClient()
		if err != nil {
			return errors.Wrap(errors.ErrCodeUnavailable, "failed to get kubernetes client", err)
		}
	}

	content, err := Encode(w.format, v)
	if err != nil {
		return err
	}

	ts := w.now().UTC()
	if t, ok := v.(interface{ Timestamp() time.Time }); ok && !t.Timestamp().IsZero() {
		ts = t.Timestamp().UTC()
	}
	labels := map[string]string{
		"app.kubernetes.io/name":      "hwtd",
		"app.kubernetes.io/component": "snapshot",
	}
	if h, ok := v.(interface{ Host() string }); ok && h.Host() != "" {
		labels["hwtelemetry.nvidia.com/host"] = h.Host()
	}

	cm := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(labels).
		WithData(map[string]string{
			"snapshot." + w.extension(): string(content),
			"format":                    string(w.format),
			"timestamp":                 ts.Format(time.RFC3339),
		})

	slog.Info("applying snapshot configmap",
		"namespace", w.namespace,
		"name", w.name,
		"format", w.format)

	// Server-side apply is an atomic create-or-update.
	_, err = c.CoreV1().ConfigMaps(w.namespace).Apply(writeCtx, cm, metav1.ApplyOptions{
		FieldManager: fieldManager,
		Force:        true,
	})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to apply ConfigMap", err,
			map[string]any{"namespace": w.namespace, "name": w.name})
	}
	return nil
}

func (w *ConfigMapWriter) extension() string {
	if w.format == FormatTable {
		return "txt"
	}
	return string(w.format)
}

// Close is a no-op.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// ParseConfigMapURI splits cm://namespace/name into its parts.
func ParseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, ConfigMapURIScheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])
	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}
	return namespace, name, nil
}
