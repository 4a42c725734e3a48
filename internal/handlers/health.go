package handlers

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 3 * time.Second

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
}

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Health is the plain-text liveness probe kept for load balancers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, healthzResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Version:       h.version,
	})
}

// Readyz runs every readiness check and returns 503 when any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := readyzResponse{Ready: true, Checks: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			resp.Ready = false
			resp.Checks[c.Name] = err.Error()
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	w.Header().Set("Cache-Control", "no-store")
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
