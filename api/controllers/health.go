package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/api/responses"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POS-Catalog-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every named dependency answers a ping.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POS-Catalog-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failing := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness check failed")
				}
				failing[name] = "unavailable"
			}
		}
		if len(failing) > 0 {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status":       "unavailable",
				"dependencies": failing,
			})
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
