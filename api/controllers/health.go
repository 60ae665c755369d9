package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/pkg/config"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seamline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies; a failed ping reports not-ready so
// the platform stops routing traffic here.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seamline-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		for name, p := range map[string]pinger{"postgres": dbPinger, "redis": redisPinger} {
			if p == nil {
				checks[name] = "skipped"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				ready = false
				if logg != nil {
					logg.Error(ctx, "health.ready."+name, err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if !ready {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
