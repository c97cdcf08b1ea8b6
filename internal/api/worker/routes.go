// Package worker binds the HTTP surface of a worker agent: the current
// snapshot plus the accept, reject, cancel and complete actions.
package worker

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ahrav/handyhire/internal/api/errs"
	appdispatch "github.com/ahrav/handyhire/internal/app/dispatch"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/web"
)

// Agent is the subset of the worker agent the handlers drive.
type Agent interface {
	Snapshot() (appdispatch.WorkerSnapshot, bool)
	Accept(ctx context.Context, price string) (appdispatch.WorkerSnapshot, error)
	Reject(ctx context.Context) (appdispatch.WorkerSnapshot, error)
	Cancel(ctx context.Context) (appdispatch.WorkerSnapshot, error)
	Complete(ctx context.Context) (appdispatch.WorkerSnapshot, error)
	SetAvailability(ctx context.Context, status string) (appdispatch.WorkerSnapshot, error)
	UpdateLocation(ctx context.Context, lat, lng float64) (appdispatch.WorkerSnapshot, error)
}

// Config contains the dependencies needed by the worker handlers.
type Config struct {
	Log   *logger.Logger
	Agent Agent
}

// Routes binds all the worker endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodGet, version, "/worker/state", state(cfg))
	app.HandlerFunc(http.MethodPost, version, "/worker/accept", accept(cfg))
	app.HandlerFunc(http.MethodPost, version, "/worker/reject", action(cfg, cfg.Agent.Reject))
	app.HandlerFunc(http.MethodPost, version, "/worker/cancel", action(cfg, cfg.Agent.Cancel))
	app.HandlerFunc(http.MethodPost, version, "/worker/complete", action(cfg, cfg.Agent.Complete))
	app.HandlerFunc(http.MethodPost, version, "/worker/availability", availability(cfg))
	app.HandlerFunc(http.MethodPost, version, "/worker/location", location(cfg))
}

// state returns the snapshot from the last tick. Before the first successful
// tick the response is an Idle snapshot flagged stale.
func state(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		snap, _ := cfg.Agent.Snapshot()
		return toStateResponse(snap)
	}
}

func accept(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var req acceptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		snap, err := cfg.Agent.Accept(ctx, req.Price.String())
		if err != nil {
			return errs.FromDomain(err)
		}

		return toStateResponse(snap)
	}
}

type actionFunc func(ctx context.Context) (appdispatch.WorkerSnapshot, error)

// action binds the body-less transitions.
func action(cfg Config, fn actionFunc) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		snap, err := fn(ctx)
		if err != nil {
			return errs.FromDomain(err)
		}

		return toStateResponse(snap)
	}
}

func availability(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var req availabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		snap, err := cfg.Agent.SetAvailability(ctx, req.Status)
		if err != nil {
			return errs.FromDomain(err)
		}

		return toStateResponse(snap)
	}
}

func location(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		snap, err := cfg.Agent.UpdateLocation(ctx, *req.Lat, *req.Lng)
		if err != nil {
			return errs.FromDomain(err)
		}

		return toStateResponse(snap)
	}
}
