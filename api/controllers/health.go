package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/rangolink/merchant-bridge/api/responses"
	"github.com/rangolink/merchant-bridge/pkg/config"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the bridge's backing services. A failing dependency
// downgrades the response to 503 but still reports each check.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bridge-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = checkDependency(ctx, logg, "database", dbP, &healthy)
		checks["redis"] = checkDependency(ctx, logg, "redis", redisP, &healthy)

		status := http.StatusOK
		overall := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}

func checkDependency(ctx context.Context, logg *logger.Logger, name string, p Pinger, healthy *bool) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
		}
		*healthy = false
		return "down"
	}
	return "up"
}
