package handler

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds each dependency check
const healthTimeout = 2 * time.Second

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

type serviceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// HealthHandler reports dependency status, uptime and whether tracking is armed
func HealthHandler(checks map[string]HealthCheck, tracking func() bool, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]serviceStatus, len(checks))
		overall := "ok"

		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := check(ctx)
			cancel()

			if err != nil {
				services[name] = serviceStatus{Status: "down", Details: err.Error()}
				overall = "down"
				continue
			}
			services[name] = serviceStatus{Status: "ok"}
		}

		status := http.StatusOK
		if overall != "ok" {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, envelope{
			"status":   overall,
			"services": services,
			"tracking": tracking != nil && tracking(),
			"uptime":   time.Since(upSince).Round(time.Second).String(),
		})
	}
}
