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

package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hwt_gate_wait_duration_seconds",
			Help:    "Time spent waiting for a connector force serialization lock",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 30, 120},
		},
	)

	gateTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwt_gate_timeouts_total",
			Help: "Force serialization lock waits that gave up",
		},
		[]string{"reason"}, // timeout or interrupted
	)

	retryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwt_retry_attempts_total",
			Help: "Attempts that ended with a retryable result",
		},
		[]string{"operation"},
	)

	retryExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwt_retry_exhausted_total",
			Help: "Operations that returned their default after the last retry",
		},
		[]string{"operation"},
	)
)
