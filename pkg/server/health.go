package server

import (
	"net/http"
	"time"

	"github.com/NVIDIA/hwtelemetry/pkg/serializer"
)

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status    string     `json:"status" yaml:"status"`
	Timestamp time.Time  `json:"timestamp" yaml:"timestamp"`
	Reason    string     `json:"reason,omitempty" yaml:"reason,omitempty"`
	LastCycle *CycleInfo `json:"lastCycle,omitempty" yaml:"lastCycle,omitempty"`
}

// CycleInfo describes the most recent engine cycle.
type CycleInfo struct {
	ID         string    `json:"id" yaml:"id"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finishedAt"`
	Discovery  bool      `json:"discovery" yaml:"discovery"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// handleHealth is the liveness probe. The process answering is enough.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", false, nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: s.now(),
	})
}

// handleReady is the readiness probe. It fails until the first cycle has
// finished and again when cycles stop completing within StaleAfter.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", false, nil)
		return
	}

	now := s.now()
	s.mu.RLock()
	ready, last := s.ready, s.lastCycle
	s.mu.RUnlock()

	resp := HealthResponse{Status: "ready", Timestamp: now, LastCycle: last}
	switch {
	case !ready:
		resp.Status = "not_ready"
		resp.Reason = "waiting for the first collection cycle"
	case last != nil && s.config.StaleAfter > 0 && now.Sub(last.FinishedAt) > s.config.StaleAfter:
		resp.Status = "not_ready"
		resp.Reason = "last collection cycle is stale"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	serializer.RespondJSON(w, status, resp)
}
