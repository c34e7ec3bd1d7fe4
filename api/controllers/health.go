package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/landmarklens/landmark-api/api/responses"
	"github.com/landmarklens/landmark-api/pkg/config"
	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Landmark-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency concurrently. Any failure answers
// 503 with the failing names in details.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Landmark-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make(map[string]string, len(deps))
		failed := make([]string, 0)
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)

		errs := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			pinger := deps[name]
			g.Go(func() error {
				if pinger == nil {
					return nil
				}
				errs[i] = pinger.Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		for i, name := range names {
			if errs[i] != nil {
				results[name] = "unavailable"
				failed = append(failed, name)
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"dependency": name,
						"error":      errs[i].Error(),
					}), "health.dependency_unavailable")
				}
				continue
			}
			results[name] = "ok"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"failed": failed, "checks": results}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
