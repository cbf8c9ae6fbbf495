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

package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hwt_cycle_duration_seconds",
			Help:    "Duration of a full discovery and collect cycle",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hwt_job_duration_seconds",
			Help:    "Duration of one monitor job",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		},
		[]string{"strategy"},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwt_jobs_total",
			Help: "Monitor jobs by strategy and outcome",
		},
		[]string{"strategy", "status"}, // ok, error, panic
	)

	poolTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwt_job_pool_timeouts_total",
			Help: "Job pool waits that expired before every job finished",
		},
		[]string{"strategy"},
	)

	connectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwt_connector_runs_total",
			Help: "Connector passes by strategy and final state",
		},
		[]string{"strategy", "state"},
	)

	monitorsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hwt_monitors",
			Help: "Number of monitors in the telemetry registry",
		},
	)
)
