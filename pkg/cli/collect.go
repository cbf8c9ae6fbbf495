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
	"log/slog"

	"github.com/urfave/cli/v3"
)

func collectCmd() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Run one discovery and collect cycle and print the result",
		Description: `Loads the connectors, runs discovery followed by collect once and
writes the resulting monitor graph.

  hwtd collect --connectors ./connectors --format table
  hwtd collect -c host.yaml --output cm://monitoring/server-01

With --report the per-connector cycle report is written instead.`,
		Flags: append(engineFlags(),
			outputFlag(),
			formatFlag(),
			&cli.BoolFlag{
				Name:  "report",
				Usage: "write the cycle report instead of the monitor snapshot",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			sched, err := newScheduler(cmd)
			if err != nil {
				return err
			}

			res, err := sched.Run(ctx)
			if err != nil {
				return err
			}
			slog.Debug("cycle finished", "cycle", res.ID, "duration", res.Duration.String())

			if cmd.Bool("report") {
				return writeOutput(ctx, cmd, res)
			}
			return writeOutput(ctx, cmd, sched.State().Snapshot(res.StartedAt.Add(res.Duration)))
		},
	}
}
