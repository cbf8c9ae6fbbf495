package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/serializer"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleDefault)

	// probes and scraping are not rate limited
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	if s.snapshots != nil {
		mux.HandleFunc("/v1/snapshot", s.withMiddleware("/v1/snapshot", s.handleSnapshot))
	}

	return mux
}

func (s *Server) routes() []string {
	routes := []string{"GET /healthz", "GET /readyz", "GET /metrics"}
	if s.snapshots != nil {
		routes = append(routes, "GET /v1/snapshot")
	}
	return routes
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, r, http.StatusNotFound, string(errors.ErrCodeNotFound), "Not found", false,
			map[string]any{"path": r.URL.Path})
		return
	}

	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	serializer.RespondJSON(w, http.StatusOK, struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.config.Name,
		Version:   s.config.Version,
		Ready:     ready,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Routes:    s.routes(),
	})
}

// handleSnapshot serves the monitor graph. Query parameters:
//
//	format  json (default), yaml or table
//	type    keep only monitors of this type, repeatable
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", false, nil)
		return
	}

	q := r.URL.Query()
	format := serializer.FormatJSON
	if v := q.Get("format"); v != "" {
		f, err := serializer.ParseFormat(v)
		if err != nil {
			WriteStructuredError(w, r, err)
			return
		}
		format = f
	}

	snap := s.snapshots.Snapshot(s.now())
	if types := q["type"]; len(types) > 0 {
		snap = filterSnapshot(snap, types)
	}

	slog.Debug("serving snapshot", "monitors", len(snap.Monitors), "format", format)
	snapshotsServed.WithLabelValues(string(format)).Inc()
	serializer.Respond(w, http.StatusOK, format, snap)
}

func filterSnapshot(snap telemetry.Snapshot, types []string) telemetry.Snapshot {
	keep := make(map[string]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}
	out := snap
	out.Monitors = nil
	for _, m := range snap.Monitors {
		if keep[m.Type] {
			out.Monitors = append(out.Monitors, m)
		}
	}
	return out
}
