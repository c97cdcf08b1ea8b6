// Package mux provides support to bind domain level routes
// to the application mux.
package mux

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/api/customer"
	"github.com/ahrav/handyhire/internal/api/health"
	"github.com/ahrav/handyhire/internal/api/mid"
	"github.com/ahrav/handyhire/internal/api/profile"
	"github.com/ahrav/handyhire/internal/api/worker"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/web"
)

// Options represent optional parameters.
type Options struct {
	corsOrigin []string
}

// WithCORS provides configuration options for CORS.
func WithCORS(origins []string) func(opts *Options) {
	return func(opts *Options) {
		opts.corsOrigin = origins
	}
}

// Config contains all the mandatory systems required by handlers. Exactly one
// of Worker and Customer is set, matching the role the process runs as.
// Profiles, when set, serves the account endpoints for ProfileID.
type Config struct {
	Build       string
	Log         *logger.Logger
	Tracer      trace.Tracer
	Metrics     mid.RequestMetrics
	RateLimiter mid.Limiter
	Ready       health.Checker

	Worker   worker.Agent
	Customer customer.Agent

	ProfileID uuid.UUID
	Profiles  profile.Service
}

// RouteAdder defines behavior that sets the routes to bind for an instance
// of the service.
type RouteAdder interface {
	Add(app *web.App, cfg Config)
}

// WebAPI constructs a http.Handler with all application routes bound.
func WebAPI(cfg Config, routeAdder RouteAdder, options ...func(opts *Options)) http.Handler {
	logger := func(ctx context.Context, msg string, args ...any) {
		cfg.Log.Info(ctx, msg, args...)
	}

	app := web.NewApp(
		logger,
		cfg.Tracer,
		mid.Otel(cfg.Tracer),
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.Panics(),
		mid.RateLimit(cfg.RateLimiter),
	)

	var opts Options
	for _, option := range options {
		option(&opts)
	}

	if len(opts.corsOrigin) > 0 {
		app.EnableCORS(opts.corsOrigin)
	}

	routeAdder.Add(app, cfg)

	return app
}
