package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/libralend/libralend-backend/api/responses"
	"github.com/libralend/libralend-backend/pkg/config"
	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessDep names a dependency the readiness probe must reach.
type ReadinessDep struct {
	Name   string
	Pinger pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Libralend-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every listed dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...ReadinessDep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Libralend-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "readiness probe failed").
					WithDetails(map[string]any{"dependency": dep.Name})
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
