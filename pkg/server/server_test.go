package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	cfg := NewConfig()
	cfg.StaleAfter = 10 * time.Minute
	return NewServer(cfg, append([]Option{WithClock(func() time.Time { return testNow })}, opts...)...)
}

func get(t *testing.T, s *Server, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, ErrCodeMethodNotAllowed, decode[ErrorResponse](t, rec).Code)
}

func TestReadiness(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode[HealthResponse](t, rec).Status)

	s.RecordCycle("c1", testNow.Add(-time.Minute), true, nil)
	rec = get(t, s, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	require.NotNil(t, resp.LastCycle)
	assert.Equal(t, "c1", resp.LastCycle.ID)
	assert.True(t, resp.LastCycle.Discovery)

	s.RecordCycle("c2", testNow.Add(-time.Hour), false, assert.AnError)
	rec = get(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp = decode[HealthResponse](t, rec)
	assert.Contains(t, resp.Reason, "stale")
	assert.Equal(t, assert.AnError.Error(), resp.LastCycle.Error)

	s.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, WithSnapshotSource(telemetry.NewState(&config.HostConfiguration{Hostname: "h"})))
	get(t, s, "/v1/snapshot")

	get(t, s, "/v1/snapshot?format=yaml")
	s.RecordCycle("c1", testNow, true, nil)

	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hwt_http_requests_total")
	assert.Contains(t, body, "hwt_http_response_size_bytes")
	assert.Contains(t, body, `hwt_snapshots_served_total{format="yaml"}`)
	assert.Equal(t, float64(testNow.Unix()), testutil.ToFloat64(lastCycleTime.WithLabelValues("discovery")))
	assert.Equal(t, 0.0, testutil.ToFloat64(lastCycleFailed.WithLabelValues("discovery")))
	assert.Equal(t, 1.0, testutil.ToFloat64(daemonReady))
}

func TestResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := recordResponse(w)
	assert.Same(t, rec, recordResponse(rec))

	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)
	n, err := rec.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, rec.status)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, n, rec.bytes)
	assert.Equal(t, w, rec.Unwrap())
}

func TestDefaultRoute(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Name   string   `json:"name"`
		Routes []string `json:"routes"`
	}](t, rec)
	assert.Equal(t, "hwtd", body.Name)
	assert.NotContains(t, body.Routes, "GET /v1/snapshot")

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
}

func TestSnapshotRoute(t *testing.T) {
	state := telemetry.NewState(&config.HostConfiguration{Hostname: "server-01"})
	state.EndpointHost()
	_, _ = state.GetOrCreateMonitor("disk", "d1", nil)
	s := newTestServer(t, WithSnapshotSource(state))

	t.Run("json", func(t *testing.T) {
		rec := get(t, s, "/v1/snapshot")
		require.Equal(t, http.StatusOK, rec.Code)
		snap := decode[telemetry.Snapshot](t, rec)
		assert.Equal(t, "server-01", snap.Hostname)
		assert.Len(t, snap.Monitors, 2)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("type filter", func(t *testing.T) {
		snap := decode[telemetry.Snapshot](t, get(t, s, "/v1/snapshot?type=disk"))
		require.Len(t, snap.Monitors, 1)
		assert.Equal(t, "d1", snap.Monitors[0].ID)
	})

	t.Run("table", func(t *testing.T) {
		rec := get(t, s, "/v1/snapshot?format=table")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "TYPE"))
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("bad format", func(t *testing.T) {
		rec := get(t, s, "/v1/snapshot?format=xml")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("request id is kept when valid", func(t *testing.T) {
		id := "6f1c1b6e-3b0e-4d84-9a55-2f4f5d7f7a10"
		rec := get(t, s, "/v1/snapshot", "X-Request-Id", id)
		assert.Equal(t, id, rec.Header().Get("X-Request-Id"))

		rec = get(t, s, "/v1/snapshot", "X-Request-Id", "not-a-uuid")
		assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-Id"))
	})
}

func TestRateLimit(t *testing.T) {
	cfg := NewConfig()
	cfg.RateLimit = 0.001
	cfg.RateLimitBurst = 1
	s := NewServer(cfg, WithSnapshotSource(telemetry.NewState(nil)))

	assert.Equal(t, http.StatusOK, get(t, s, "/v1/snapshot").Code)
	rec := get(t, s, "/v1/snapshot")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.True(t, decode[ErrorResponse](t, rec).Retryable)

	// probes are not limited
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
}

type panicking struct{}

func (panicking) Snapshot(time.Time) telemetry.Snapshot { panic("boom") }

func TestPanicRecovery(t *testing.T) {
	s := newTestServer(t, WithSnapshotSource(panicking{}))
	rec := get(t, s, "/v1/snapshot")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", decode[ErrorResponse](t, rec).Code)
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewConfigEnv(t *testing.T) {
	t.Setenv("HWT_SERVER_PORT", "9100")
	t.Setenv("HWT_SHUTDOWN_TIMEOUT_SECONDS", "5")
	cfg := NewConfig()
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)

	t.Setenv("HWT_SERVER_PORT", "abc")
	assert.Equal(t, 9464, NewConfig().Port)
}
