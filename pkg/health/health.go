// Package health provides liveness and readiness probe endpoints.
//
// Checks run on demand when a probe endpoint is hit, each bounded by its own
// timeout. The probe interval and flap damping live in the orchestrator's
// probe configuration instead of in-process state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health tracks readiness checks and the manual ready flag.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []check
}

// New creates a Health in the not-ready state. Call SetReady(true) once
// initialization completes.
func New() *Health {
	return &Health{}
}

// AddReadinessCheck registers a dependency probe evaluated on every /readyz
// request.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness flag. Set it to false during graceful
// shutdown to drain traffic before the listener closes.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez. The process answering at all is the liveness
// signal, so it always reports ok.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, nil)
}

// ReadyEndpoint serves /readyz. It reports ok only when the manual flag is
// set and every registered check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	failures := make(map[string]string)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}

	h.mu.RLock()
	checks := make([]check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	for _, c := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		err := c.fn(ctx)
		cancel()
		if err != nil {
			failures[c.name] = err.Error()
		}
	}

	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
