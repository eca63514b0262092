package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/threadhouse-backend/api/responses"
	"github.com/angelmondragon/threadhouse-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

const readyCheckTimeout = 2 * time.Second

// Pinger is any backing service the API needs to be ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency probed by /health/ready. A nil Pinger is
// reported as disabled.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Threadhouse-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency and answers 503 when one fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Threadhouse-Env", cfg.App.Env)

		results := make(map[string]string, len(checks))
		var failed []string
		for _, check := range checks {
			if check.Pinger == nil {
				results[check.Name] = "disabled"
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := check.Pinger.Ping(ctx)
			cancel()
			if err != nil {
				results[check.Name] = "down"
				failed = append(failed, check.Name)
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", check.Name), "health.dependency_down", err)
				}
				continue
			}
			results[check.Name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"checks": results, "failed": failed}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
