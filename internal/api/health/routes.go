package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ahrav/handyhire/internal/api/errs"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/web"
)

// Checker reports whether a backing dependency is reachable.
type Checker func(ctx context.Context) error

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build string
	Log   *logger.Logger
	Ready Checker
}

// Routes binds all the health check endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFuncNoMid(http.MethodGet, version, "/liveness", liveness(cfg))
	app.HandlerFuncNoMid(http.MethodGet, version, "/readiness", readiness(cfg))
}

// healthResponse represents the response for health check.
type healthResponse struct {
	Status string `json:"status"`
	Build  string `json:"build"`
}

// Encode implements the web.Encoder interface.
func (hr healthResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(hr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func liveness(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		return healthResponse{
			Status: "ok",
			Build:  cfg.Build,
		}
	}
}

// readyResponse represents the response for readiness check.
type readyResponse struct {
	Status string `json:"status"`
}

// Encode implements the web.Encoder interface.
func (rr readyResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(rr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

const readinessTimeout = time.Second

// readiness pings the record store. A store that cannot be reached makes the
// agent useless even though its poll loop keeps running.
func readiness(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
			defer cancel()

			if err := cfg.Ready(ctx); err != nil {
				cfg.Log.Warn(ctx, "readiness check failed", "error", err)
				return errs.Newf(errs.Unavailable, "not ready")
			}
		}

		return readyResponse{Status: "ready"}
	}
}
