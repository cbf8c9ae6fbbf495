package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hwt_http_requests_total",
		Help: "API requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hwt_http_request_duration_seconds",
		Help:    "API request latency.",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"route"})

	apiResponseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hwt_http_response_size_bytes",
		Help:    "API response body size.",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"route"})

	apiInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hwt_http_requests_in_flight",
		Help: "API requests being served.",
	})

	apiThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hwt_http_rate_limit_rejects_total",
		Help: "API requests rejected by the rate limiter.",
	})

	apiPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hwt_http_panic_recoveries_total",
		Help: "Panics recovered in API handlers.",
	})

	snapshotsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hwt_snapshots_served_total",
		Help: "Snapshots served over HTTP by output format.",
	}, []string{"format"})

	daemonReady = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hwt_daemon_ready",
		Help: "1 once a collection cycle has completed, 0 before that and during shutdown.",
	})

	lastCycleTime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hwt_last_cycle_timestamp_seconds",
		Help: "Unix time the last cycle finished, by kind.",
	}, []string{"kind"})

	lastCycleFailed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hwt_last_cycle_failed",
		Help: "1 when the last cycle of a kind returned an error.",
	}, []string{"kind"})
)

func cycleKind(discovery bool) string {
	if discovery {
		return "discovery"
	}
	return "collect"
}

func observeCycle(info *CycleInfo) {
	kind := cycleKind(info.Discovery)
	lastCycleTime.WithLabelValues(kind).Set(float64(info.FinishedAt.Unix()))
	failed := 0.0
	if info.Error != "" {
		failed = 1
	}
	lastCycleFailed.WithLabelValues(kind).Set(failed)
}

func observeReady(ready bool) {
	if ready {
		daemonReady.Set(1)
		return
	}
	daemonReady.Set(0)
}

// metricsMiddleware instruments one API route. The route pattern, not the
// request path, is the label so unknown paths cannot grow the series.
func (s *Server) metricsMiddleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		start := time.Now()
		rec := recordResponse(w)
		next.ServeHTTP(rec, r)

		apiRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		apiLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		apiResponseBytes.WithLabelValues(route).Observe(float64(rec.bytes))
	}
}
