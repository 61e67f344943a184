package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/utils"
	"go.uber.org/zap"
)

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports whether the store and the audit trail are usable
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ready"
		checks := map[string]string{}

		if deps.Store == nil {
			status = "not_ready"
			checks["database"] = "not_initialized"
		} else if err := deps.HealthCheck(ctx); err != nil {
			status = "not_ready"
			checks["database"] = "unhealthy"
			deps.Logger.Error("database health check failed", zap.Error(err))
		} else {
			checks["database"] = "healthy"
		}

		switch {
		case deps.Audit == nil:
			checks["audit"] = "disabled"
		case deps.Audit.GetStats().Started:
			checks["audit"] = "running"
		default:
			checks["audit"] = "stopped"
		}

		code := http.StatusOK
		if status != "ready" {
			code = http.StatusServiceUnavailable
		}
		_ = utils.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
