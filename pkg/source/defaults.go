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
	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/source/command"
	"github.com/NVIDIA/hwtelemetry/pkg/source/file"
	"github.com/NVIDIA/hwtelemetry/pkg/source/snmp"
	"github.com/NVIDIA/hwtelemetry/pkg/source/systemd"
)

// NewDefaultRegistry returns a registry serving every built-in source type
// for the host described by cfg.
func NewDefaultRegistry(cfg *config.HostConfiguration) *Registry {
	r := NewRegistry()
	r.Register(TypeFile, file.NewHandler())
	r.Register(TypeSystemd, systemd.NewHandler(nil))
	r.Register(TypeCommand, command.NewHandler(nil))

	var snmpCfg *config.SNMPConfiguration
	if cfg != nil {
		snmpCfg = cfg.SNMP
	}
	r.Register(TypeSNMP, snmp.NewHandler(snmpCfg, nil))
	return r
}
