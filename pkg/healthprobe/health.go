// Package healthprobe backs the /health and /ready admin endpoints:
// liveness is unconditional while the process runs; readiness flips on
// once the orchestrator finishes startup and off again during teardown so
// traffic drains before the listener closes.
package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	goccyjson "github.com/goccy/go-json"
)

// HealthChecker tracks process readiness for the admin HTTP surface.
type HealthChecker struct {
	startedAt time.Time
	ready     atomic.Bool
}

// New creates a HealthChecker anchored at the current time, not ready.
func New() *HealthChecker {
	return &HealthChecker{startedAt: time.Now()}
}

// SetReady marks the process ready or (during teardown) not ready.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// ProbeResponse is the JSON body both probe handlers return.
type ProbeResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
}

func (h *HealthChecker) write(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = goccyjson.NewEncoder(w).Encode(ProbeResponse{
		Status: status,
		Uptime: time.Since(h.startedAt).Round(time.Millisecond).String(),
	})
}

// Health is the liveness handler. Always 200: a wedged event loop still
// counts as alive, readiness is the probe that gates traffic.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.write(w, http.StatusOK, "healthy")
	}
}

// Ready is the readiness handler: 200 once startup completed, 503
// otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			h.write(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		h.write(w, http.StatusOK, "ready")
	}
}
