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

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/source"
	"github.com/NVIDIA/hwtelemetry/pkg/strategy"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// ConnectorInfo is one line of the connectors listing.
type ConnectorInfo struct {
	ID           string   `json:"id" yaml:"id"`
	DisplayName  string   `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	MonitorTypes []string `json:"monitorTypes" yaml:"monitorTypes"`
	Criteria     int      `json:"criteria" yaml:"criteria"`
	Problem      string   `json:"problem,omitempty" yaml:"problem,omitempty"`
	// Detected is set only with --detect.
	Detected *bool `json:"detected,omitempty" yaml:"detected,omitempty"`
}

// ConnectorList renders as a table.
type ConnectorList []ConnectorInfo

// TableHeader implements serializer.Tabular.
func (l ConnectorList) TableHeader() []string {
	return []string{"ID", "MONITORS", "CRITERIA", "DETECTED", "PROBLEM"}
}

// TableRows implements serializer.Tabular.
func (l ConnectorList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		detected := "-"
		if c.Detected != nil {
			detected = fmt.Sprint(*c.Detected)
		}
		rows = append(rows, []string{
			c.ID, strings.Join(c.MonitorTypes, ","), fmt.Sprint(c.Criteria), detected, c.Problem,
		})
	}
	return rows
}

func connectorsCmd() *cli.Command {
	return &cli.Command{
		Name:  "connectors",
		Usage: "List and check the connectors available to the host",
		Description: `Loads every connector from --connectors and checks that the sources
of each task can be ordered. With --detect the detection criteria are run
against the host, the same way the first cycle would.

  hwtd connectors --connectors ./connectors --format table
  hwtd connectors -c host.yaml --detect`,
		Flags: append(engineFlags(),
			outputFlag(),
			formatFlag(),
			&cli.BoolFlag{
				Name:  "detect",
				Usage: "run the detection criteria of each connector",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}
			cfg, err := loadHostConfig(cmd)
			if err != nil {
				return err
			}
			store, err := newStore(cmd, cfg)
			if err != nil {
				return err
			}

			var det *detector
			if cmd.Bool("detect") {
				det = newDetector(cfg)
			}
			list, err := listConnectors(ctx, store, cfg.HostID, det)
			if err != nil {
				return err
			}
			if err := writeOutput(ctx, cmd, list); err != nil {
				return err
			}
			for _, c := range list {
				if c.Problem != "" {
					return errors.NewWithContext(errors.ErrCodeConfiguration, "invalid connectors",
						map[string]any{"connector": c.ID})
				}
			}
			return nil
		},
	}
}

type detector struct {
	criteria source.CriterionProcessor
	state    *telemetry.State
}

func newDetector(cfg *config.HostConfiguration) *detector {
	return &detector{criteria: source.NewDefaultRegistry(cfg), state: telemetry.NewState(cfg)}
}

// detect runs criteria in order and stops at the first failure.
func (d *detector) detect(ctx context.Context, c *connector.Connector) bool {
	if c.Detection == nil {
		return true
	}
	for _, crit := range c.Detection.Criteria {
		if !d.criteria.ProcessCriterion(ctx, crit, c.ID, d.state).Success {
			return false
		}
	}
	return true
}

func listConnectors(ctx context.Context, store connector.Store, hostID string, d *detector) (ConnectorList, error) {
	conns, err := store.ConnectorsForHost(ctx, hostID)
	if err != nil {
		return nil, err
	}

	list := make(ConnectorList, 0, len(conns))
	for _, c := range conns {
		info := ConnectorInfo{ID: c.ID, DisplayName: c.DisplayName, MonitorTypes: c.MonitorTypes()}
		if c.Detection != nil {
			info.Criteria = len(c.Detection.Criteria)
		}
		if err := strategy.CheckSourceOrder(c); err != nil {
			info.Problem = err.Error()
		}
		if d != nil {
			ok := d.detect(ctx, c)
			info.Detected = &ok
		}
		list = append(list, info)
	}
	return list, nil
}
