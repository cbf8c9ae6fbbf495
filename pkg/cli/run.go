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
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/serializer"
	"github.com/NVIDIA/hwtelemetry/pkg/server"
	"github.com/NVIDIA/hwtelemetry/pkg/strategy"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Collect periodically and serve probes, metrics and snapshots",
		Description: `Runs a cycle every collect interval until interrupted. Discovery runs
on the first cycle and then every discovery interval.

The HTTP server exposes /healthz, /readyz, /metrics and /v1/snapshot.
Under systemd (Type=notify) the daemon reports READY after the first
cycle and pings the watchdog after each one.

  hwtd run -c /etc/hwtd/host.yaml --port 9464
  hwtd run --connectors cm://monitoring/hwt-connectors --snapshot-output cm://monitoring/server-01`,
		Flags: append(engineFlags(),
			&cli.StringFlag{
				Name:    "address",
				Usage:   "listen address of the HTTP server",
				Sources: cli.EnvVars("HWT_SERVER_ADDRESS"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "listen port of the HTTP server, 0 disables it",
				Value:   defaults.ServerPort,
				Sources: cli.EnvVars("HWT_SERVER_PORT"),
			},
			&cli.StringFlag{
				Name:    "snapshot-output",
				Usage:   "also write the snapshot after every cycle (file or cm://namespace/name)",
				Sources: cli.EnvVars("HWT_SNAPSHOT_OUTPUT"),
			},
			formatFlag(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			sched, err := newScheduler(cmd)
			if err != nil {
				return err
			}
			cfg := sched.State().Config()

			var srv *server.Server
			if port := cmd.Int("port"); port > 0 {
				scfg := server.NewConfig()
				scfg.Version = version
				scfg.Address = cmd.String("address")
				scfg.Port = port
				scfg.StaleAfter = 3 * cfg.CollectInterval
				srv = server.NewServer(scfg, server.WithSnapshotSource(sched.State()))
			}

			g, gctx := errgroup.WithContext(ctx)
			if srv != nil {
				g.Go(func() error { return srv.Start(gctx) })
			}
			g.Go(func() error {
				return loop(gctx, sched, cfg.CollectInterval, func(res *strategy.CycleResult, err error) {
					if srv != nil {
						srv.RecordCycle(res.ID, res.StartedAt.Add(res.Duration), len(res.Discovery) > 0, err)
					}
					if out := cmd.String("snapshot-output"); out != "" && err == nil {
						if werr := writeSnapshot(gctx, cmd, sched, out); werr != nil {
							slog.Error("failed to write snapshot", "error", werr, "output", out)
						}
					}
				})
			})

			err = g.Wait()
			notify(daemon.SdNotifyStopping)
			if ctx.Err() != nil {
				slog.Info("stopped", "reason", context.Cause(ctx))
				return nil
			}
			return err
		},
	}
}

// loop runs a cycle now and then on every tick until ctx is done. A failed
// cycle is logged and retried on the next tick.
func loop(ctx context.Context, sched *strategy.Scheduler, interval time.Duration,
	after func(*strategy.CycleResult, error)) error {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	first := true
	for {
		res, err := sched.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Error("cycle failed", "cycle", res.ID, "error", err)
		}
		after(res, err)

		if first {
			notify(daemon.SdNotifyReady)
			first = false
		}
		notify(daemon.SdNotifyWatchdog)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func writeSnapshot(ctx context.Context, cmd *cli.Command, sched *strategy.Scheduler, out string) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}
	w := serializer.NewFileWriterOrStdout(format, out)
	if c, ok := w.(serializer.Closer); ok {
		defer c.Close()
	}
	return w.Serialize(ctx, sched.State().Snapshot(time.Now()))
}

// notify is a no-op outside systemd.
func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		slog.Debug("sd_notify failed", "state", state, "error", err)
	}
}
