package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Health serves the liveness, readiness and detailed health endpoints.
// The "database" check gates readiness; other checks only degrade /api/health.
type Health struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealth creates a Health over the named checks.
func NewHealth(checks map[string]Pinger) *Health {
	return &Health{checks: checks, timeout: 2 * time.Second}
}

func (h *Health) ping(ctx context.Context, name string) error {
	check, ok := h.checks[name]
	if !ok || check == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return check.Ping(ctx)
}

// Healthz handles liveness probes and never checks dependencies.
func (h *Health) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readyz reports ready when the roster store answers.
func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context(), "database"); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "not_ready",
			"reason":    "database_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

// Detailed runs every check.
func (h *Health) Detailed(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{}, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if h.checks[name] == nil {
			checks[name] = map[string]interface{}{"status": "not_configured"}
			continue
		}
		if err := h.ping(r.Context(), name); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks[name] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			continue
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
