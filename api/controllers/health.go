package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
)

const readinessProbeTimeout = 2 * time.Second

// HealthLive answers as soon as the process serves traffic.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SmartPatrol-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

type readinessProbe struct {
	name   string
	pinger dependencyPinger
}

// HealthReady checks the backing services the API cannot run without.
// Optional dependencies passed as nil are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, gcs, bigquery dependencyPinger) http.HandlerFunc {
	probes := []readinessProbe{
		{name: "postgres", pinger: db},
		{name: "redis", pinger: redis},
		{name: "gcs", pinger: gcs},
		{name: "bigquery", pinger: bigquery},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SmartPatrol-Env", cfg.App.Env)

		checks := make(map[string]string, len(probes))
		failed := false
		for _, probe := range probes {
			if probe.pinger == nil {
				checks[probe.name] = "skipped"
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
			err := probe.pinger.Ping(ctx)
			cancel()
			if err != nil {
				failed = true
				checks[probe.name] = "down"
				if logg != nil {
					logg.Error(r.Context(), "readiness probe failed", err)
				}
				continue
			}
			checks[probe.name] = "ok"
		}

		if failed {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
