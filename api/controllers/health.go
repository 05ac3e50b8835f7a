package controllers

import (
	"context"
	"net/http"

	"github.com/mintfield/coinledger-backend/api/responses"
	"github.com/mintfield/coinledger-backend/pkg/config"
	pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"
	"github.com/mintfield/coinledger-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Coinledger-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes each named dependency and fails on the first one that
// does not answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Coinledger-Env", cfg.App.Env)
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
