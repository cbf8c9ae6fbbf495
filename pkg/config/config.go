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

package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
)

// HostConfiguration describes one monitored host and how the engine treats it.
type HostConfiguration struct {
	// Hostname is the name or address of the monitored target.
	Hostname string `json:"hostname" yaml:"hostname"`
	// HostID identifies the endpoint host monitor. Defaults to Hostname.
	HostID string `json:"hostId,omitempty" yaml:"hostId,omitempty"`
	// HostType is informational (linux, windows, storage, network, ...).
	HostType string `json:"hostType,omitempty" yaml:"hostType,omitempty"`

	// Sequential disables the job worker pool.
	Sequential bool `json:"sequential,omitempty" yaml:"sequential,omitempty"`
	// IncludedMonitors restricts processing to these monitor types. Empty means all.
	IncludedMonitors []string `json:"includedMonitors,omitempty" yaml:"includedMonitors,omitempty"`
	// ExcludedMonitors removes these monitor types from processing.
	ExcludedMonitors []string `json:"excludedMonitors,omitempty" yaml:"excludedMonitors,omitempty"`
	// Connectors restricts the connectors loaded for the host. Empty means all.
	Connectors []string `json:"connectors,omitempty" yaml:"connectors,omitempty"`

	MaxJobWorkers     int           `json:"maxJobWorkers,omitempty" yaml:"maxJobWorkers,omitempty"`
	JobPoolTimeout    time.Duration `json:"jobPoolTimeout,omitempty" yaml:"jobPoolTimeout,omitempty"`
	LockTimeout       time.Duration `json:"lockTimeout,omitempty" yaml:"lockTimeout,omitempty"`
	RetryDelay        time.Duration `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
	SourceMaxRetries  *int          `json:"sourceMaxRetries,omitempty" yaml:"sourceMaxRetries,omitempty"`
	CollectInterval   time.Duration `json:"collectInterval,omitempty" yaml:"collectInterval,omitempty"`
	DiscoveryInterval time.Duration `json:"discoveryInterval,omitempty" yaml:"discoveryInterval,omitempty"`

	// EnableSelfMonitoring toggles the engine's own job duration metrics on
	// the endpoint host monitor. Defaults to true.
	EnableSelfMonitoring *bool `json:"enableSelfMonitoring,omitempty" yaml:"enableSelfMonitoring,omitempty"`

	SNMP *SNMPConfiguration `json:"snmp,omitempty" yaml:"snmp,omitempty"`
}

// SNMPConfiguration holds the protocol settings used by snmp sources.
type SNMPConfiguration struct {
	Version           string        `json:"version,omitempty" yaml:"version,omitempty"`
	Community         string        `json:"community,omitempty" yaml:"community,omitempty"`
	Port              uint16        `json:"port,omitempty" yaml:"port,omitempty"`
	Timeout           time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries           int           `json:"retries,omitempty" yaml:"retries,omitempty"`
	RequestsPerSecond float64       `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`
}

// Load reads a host configuration from a YAML file and applies defaults.
func Load(path string) (*HostConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration,
			fmt.Sprintf("failed to read host configuration %s", path), err)
	}
	return Parse(data)
}

// Parse decodes a host configuration, applies defaults and validates it.
func Parse(data []byte) (*HostConfiguration, error) {
	var c HostConfiguration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, "failed to parse host configuration", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills every unset tunable from the defaults package.
func (c *HostConfiguration) ApplyDefaults() {
	if c.HostID == "" {
		c.HostID = c.Hostname
	}
	if c.MaxJobWorkers <= 0 {
		c.MaxJobWorkers = defaults.MaxJobWorkers
	}
	if c.JobPoolTimeout <= 0 {
		c.JobPoolTimeout = defaults.JobPoolTimeout
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = defaults.ForceSerializationLockTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaults.SourceRetryDelay
	}
	if c.SourceMaxRetries == nil {
		n := defaults.SourceMaxRetries
		c.SourceMaxRetries = &n
	}
	if c.CollectInterval <= 0 {
		c.CollectInterval = defaults.CollectInterval
	}
	if c.DiscoveryInterval <= 0 {
		c.DiscoveryInterval = defaults.DiscoveryInterval
	}
	if c.EnableSelfMonitoring == nil {
		enabled := true
		c.EnableSelfMonitoring = &enabled
	}
	if c.SNMP != nil {
		c.SNMP.applyDefaults()
	}
}

func (s *SNMPConfiguration) applyDefaults() {
	if s.Version == "" {
		s.Version = "v2c"
	}
	if s.Community == "" {
		s.Community = "public"
	}
	if s.Port == 0 {
		s.Port = 161
	}
	if s.Timeout <= 0 {
		s.Timeout = defaults.SNMPTimeout
	}
	if s.RequestsPerSecond <= 0 {
		s.RequestsPerSecond = defaults.SNMPRequestsPerSecond
	}
}

// Validate checks the fields the engine cannot default.
func (c *HostConfiguration) Validate() error {
	if strings.TrimSpace(c.Hostname) == "" {
		return errors.New(errors.ErrCodeConfiguration, "hostname is required")
	}
	for _, t := range c.IncludedMonitors {
		if slices.Contains(c.ExcludedMonitors, t) {
			return errors.NewWithContext(errors.ErrCodeConfiguration,
				"monitor type is both included and excluded",
				map[string]any{"monitorType": t})
		}
	}
	if c.SNMP != nil {
		switch strings.ToLower(c.SNMP.Version) {
		case "v1", "1", "v2c", "2c", "2":
		default:
			return errors.NewWithContext(errors.ErrCodeConfiguration,
				"unsupported snmp version", map[string]any{"version": c.SNMP.Version})
		}
	}
	return nil
}

// IsSequential reports whether non-priority jobs run one after the other.
func (c *HostConfiguration) IsSequential() bool {
	return c.Sequential
}

// IncludedMonitorTypes returns the include filter.
func (c *HostConfiguration) IncludedMonitorTypes() []string {
	return c.IncludedMonitors
}

// ExcludedMonitorTypes returns the exclude filter.
func (c *HostConfiguration) ExcludedMonitorTypes() []string {
	return c.ExcludedMonitors
}

// IsMonitorTypeFiltered reports whether jobs of monitorType must be skipped.
func (c *HostConfiguration) IsMonitorTypeFiltered(monitorType string) bool {
	if len(c.IncludedMonitors) > 0 && !slices.Contains(c.IncludedMonitors, monitorType) {
		return true
	}
	return slices.Contains(c.ExcludedMonitors, monitorType)
}

// SelfMonitoring reports whether the engine records its own job durations.
func (c *HostConfiguration) SelfMonitoring() bool {
	return c.EnableSelfMonitoring == nil || *c.EnableSelfMonitoring
}

// MaxRetries returns the number of extra source attempts.
func (c *HostConfiguration) MaxRetries() int {
	if c.SourceMaxRetries == nil {
		return defaults.SourceMaxRetries
	}
	return *c.SourceMaxRetries
}
