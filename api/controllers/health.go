package controllers

import (
	"context"
	"net/http"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/responses"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Pinger is any dependency whose connectivity the readiness probe checks.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

// HealthReady pings every hard dependency; any failure makes the instance
// not ready so the load balancer stops routing webhooks at it.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		checks := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				checks[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "up"
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": state,
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}
