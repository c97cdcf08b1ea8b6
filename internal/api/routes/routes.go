// Package routes binds every route group the process serves.
package routes

import (
	"github.com/ahrav/handyhire/internal/api/customer"
	"github.com/ahrav/handyhire/internal/api/health"
	"github.com/ahrav/handyhire/internal/api/mux"
	"github.com/ahrav/handyhire/internal/api/profile"
	"github.com/ahrav/handyhire/internal/api/worker"
	"github.com/ahrav/handyhire/pkg/web"
)

// Routes constructs an add value which provides the implementation of
// RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

// Add implements the RouteAdder interface.
func (add) Add(app *web.App, cfg mux.Config) {
	health.Routes(app, health.Config{
		Build: cfg.Build,
		Log:   cfg.Log,
		Ready: cfg.Ready,
	})

	if cfg.Worker != nil {
		worker.Routes(app, worker.Config{
			Log:   cfg.Log,
			Agent: cfg.Worker,
		})
	}

	if cfg.Customer != nil {
		customer.Routes(app, customer.Config{
			Log:   cfg.Log,
			Agent: cfg.Customer,
		})
	}

	if cfg.Profiles != nil {
		profile.Routes(app, profile.Config{
			Log:     cfg.Log,
			ID:      cfg.ProfileID,
			Service: cfg.Profiles,
		})
	}
}
