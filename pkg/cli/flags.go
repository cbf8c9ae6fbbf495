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
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/k8s/client"
	"github.com/NVIDIA/hwtelemetry/pkg/serializer"
	"github.com/NVIDIA/hwtelemetry/pkg/source"
	"github.com/NVIDIA/hwtelemetry/pkg/strategy"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

const defaultConnectorDir = "/etc/hwtd/connectors"

const (
	flagConfig     = "config"
	flagHostname   = "hostname"
	flagConnectors = "connectors"
	flagKubeconfig = "kubeconfig"
	flagSequential = "sequential"
	flagOutput     = "output"
	flagFormat     = "format"
)

// Flags are built per command since urfave/cli keeps parse state on them.

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "output file, or cm://namespace/name (default: stdout)",
		Sources: cli.EnvVars("HWT_OUTPUT"),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagFormat,
		Aliases: []string{"t"},
		Usage:   "output format: " + strings.Join(serializer.SupportedFormats(), ", "),
		Value:   string(serializer.FormatYAML),
		Sources: cli.EnvVars("HWT_FORMAT"),
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "host configuration file (YAML)",
			Sources: cli.EnvVars("HWT_CONFIG"),
		},
		&cli.StringFlag{
			Name:    flagHostname,
			Usage:   "monitored host, overrides the configuration file (default: local host name)",
			Sources: cli.EnvVars("HWT_HOSTNAME"),
		},
		&cli.StringFlag{
			Name:    flagConnectors,
			Usage:   "connector directory, or cm://namespace/name for a ConfigMap",
			Value:   defaultConnectorDir,
			Sources: cli.EnvVars("HWT_CONNECTORS"),
		},
		&cli.StringFlag{
			Name:    flagKubeconfig,
			Usage:   "kubeconfig used for ConfigMap connectors and output",
			Sources: cli.EnvVars("HWT_KUBECONFIG", "KUBECONFIG"),
		},
		&cli.BoolFlag{
			Name:    flagSequential,
			Usage:   "run monitor jobs one after the other",
			Sources: cli.EnvVars("HWT_SEQUENTIAL"),
		},
	}
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	return serializer.ParseFormat(cmd.String(flagFormat))
}

// loadHostConfig reads --config when given and applies the flag overrides.
// Without a file the host is the local machine with default tunables.
func loadHostConfig(cmd *cli.Command) (*config.HostConfiguration, error) {
	cfg := &config.HostConfiguration{}
	if path := cmd.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if h := cmd.String(flagHostname); h != "" {
		cfg.Hostname = h
		cfg.HostID = ""
	}
	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, "failed to resolve local host name", err)
		}
		cfg.Hostname = h
	}
	if cmd.IsSet(flagSequential) {
		cfg.Sequential = cmd.Bool(flagSequential)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newStore picks the connector store from --connectors.
func newStore(cmd *cli.Command, cfg *config.HostConfiguration) (connector.Store, error) {
	if kc := cmd.String(flagKubeconfig); kc != "" {
		client.SetKubeconfig(kc)
	}

	location := strings.TrimSpace(cmd.String(flagConnectors))
	if strings.HasPrefix(location, serializer.ConfigMapURIScheme) {
		ns, cmName, err := serializer.ParseConfigMapURI(location)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid --connectors", err)
		}
		return connector.NewConfigMapStore(ns, cmName, cfg.Connectors)
	}
	return connector.NewDirectoryStore(location, cfg.Connectors), nil
}

// newScheduler wires the engine for one host.
func newScheduler(cmd *cli.Command) (*strategy.Scheduler, error) {
	cfg, err := loadHostConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cmd, cfg)
	if err != nil {
		return nil, err
	}
	reg := source.NewDefaultRegistry(cfg)
	return strategy.New(telemetry.NewState(cfg), store, reg, reg), nil
}

// writeOutput serializes v to --output in --format.
func writeOutput(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}
	w := serializer.NewFileWriterOrStdout(format, cmd.String(flagOutput))
	if c, ok := w.(serializer.Closer); ok {
		defer c.Close()
	}
	return w.Serialize(ctx, v)
}
