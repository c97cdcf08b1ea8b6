// Package profile binds the account view and edit endpoints for the
// profile this process runs as.
package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ahrav/handyhire/internal/api/errs"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/web"
)

// Service reads and edits profiles.
type Service interface {
	Profile(ctx context.Context, id uuid.UUID) (dispatch.WorkerRecord, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, edit dispatch.ProfileEdit) (dispatch.WorkerRecord, error)
}

// Config contains the dependencies needed by the profile handlers.
type Config struct {
	Log     *logger.Logger
	ID      uuid.UUID
	Service Service
}

// Routes binds the profile endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodGet, version, "/profile", get(cfg))
	app.HandlerFunc(http.MethodPut, version, "/profile", update(cfg))
}

func get(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		rec, err := cfg.Service.Profile(ctx, cfg.ID)
		if err != nil {
			return errs.FromDomain(err)
		}

		return toProfileResponse(rec)
	}
}

func update(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var req updateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		rec, err := cfg.Service.UpdateProfile(ctx, cfg.ID, req.toEdit())
		if err != nil {
			return errs.FromDomain(err)
		}

		cfg.Log.Info(ctx, "Profile edited over HTTP", "version", rec.Version)
		return toProfileResponse(rec)
	}
}
