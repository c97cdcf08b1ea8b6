// Package customer binds the HTTP surface of a customer agent: worker search,
// order submission, order history, the tracked order view and the customer's
// location.
package customer

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

// Agent is the subset of the customer agent the handlers drive.
type Agent interface {
	FindWorkers(ctx context.Context, profession string) ([]dispatch.WorkerRecord, error)
	SubmitOrder(ctx context.Context, workerID uuid.UUID, scenario string) (dispatch.OrderView, error)
	OrderHistory(ctx context.Context) ([]dispatch.OrderSummary, error)
	CurrentOrder() (dispatch.OrderView, error)
	UpdateLocation(ctx context.Context, lat, lng float64) (dispatch.WorkerRecord, error)
}

// Config contains the dependencies needed by the customer handlers.
type Config struct {
	Log   *logger.Logger
	Agent Agent
}

// Routes binds all the customer endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodGet, version, "/workers", findWorkers(cfg))
	app.HandlerFunc(http.MethodPost, version, "/orders", submit(cfg))
	app.HandlerFunc(http.MethodGet, version, "/orders", history(cfg))
	app.HandlerFunc(http.MethodGet, version, "/orders/current", current(cfg))
	app.HandlerFunc(http.MethodPost, version, "/customer/location", location(cfg))
}

func findWorkers(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		workers, err := cfg.Agent.FindWorkers(ctx, r.URL.Query().Get("profession"))
		if err != nil {
			return errs.FromDomain(err)
		}

		return toWorkersResponse(workers)
	}
}

func submit(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		workerID, err := uuid.Parse(req.WorkerID)
		if err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		view, err := cfg.Agent.SubmitOrder(ctx, workerID, req.Scenario)
		if err != nil {
			return errs.FromDomain(err)
		}

		return toOrderResponse(view, http.StatusCreated)
	}
}

func history(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		orders, err := cfg.Agent.OrderHistory(ctx)
		if err != nil {
			return errs.FromDomain(err)
		}

		return toHistoryResponse(orders)
	}
}

func current(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		view, err := cfg.Agent.CurrentOrder()
		if err != nil {
			return errs.FromDomain(err)
		}

		return toOrderResponse(view, http.StatusOK)
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

		rec, err := cfg.Agent.UpdateLocation(ctx, *req.Lat, *req.Lng)
		if err != nil {
			return errs.FromDomain(err)
		}

		return locationResponse{Location: rec.Location, Version: rec.Version}
	}
}
