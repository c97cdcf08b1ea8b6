package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/handyhire/internal/api"
	"github.com/ahrav/handyhire/internal/api/mux"
	"github.com/ahrav/handyhire/internal/api/routes"
	appdispatch "github.com/ahrav/handyhire/internal/app/dispatch"
	"github.com/ahrav/handyhire/internal/config"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/pkg/common"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/common/otel"
)

var build = "develop"

const serviceName = "handyhire"

func main() {
	// Set the correct number of threads for the service
	_, _ = maxprocs.Set()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "handyhire: %v\n", err)
		os.Exit(2)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}

			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	metadata := map[string]string{
		"hostname": hostname,
		"role":     cfg.Role,
		"agent_id": cfg.ID,
		"build":    build,
	}

	log := logger.NewWithMetadata(os.Stdout, logger.ParseLevel(cfg.LogLevel), serviceName, traceIDFn, logEvents, metadata)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg, hostname); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

// agent is what the supervisor needs from either role's agent.
type agent interface {
	Start(ctx context.Context) error
	Stop()
}

func run(ctx context.Context, log *logger.Logger, cfg *config.Config, hostname string) error {
	// -------------------------------------------------------------------------
	// GOMAXPROCS
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// -------------------------------------------------------------------------
	// Start Tracing Support
	tracer, mp, teardown, err := initTelemetry(log, cfg, hostname)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer teardown(context.Background())

	apiMetrics, err := api.NewAPIMetrics(mp)
	if err != nil {
		return fmt.Errorf("creating api metrics: %w", err)
	}

	// -------------------------------------------------------------------------
	// Record Store
	log.Info(ctx, "startup", "status", "initializing record store", "backend", cfg.Store.Backend)

	store, err := openStore(ctx, cfg.Store, log, tracer)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer store.close()

	// -------------------------------------------------------------------------
	// Lifecycle Events
	log.Info(ctx, "startup", "status", "initializing event bus", "brokers", cfg.Kafka.Brokers)

	publisher, closeBus, err := openPublisher(ctx, cfg.Kafka, log, apiMetrics, tracer)
	if err != nil {
		return fmt.Errorf("connecting event bus: %w", err)
	}
	defer closeBus()

	// -------------------------------------------------------------------------
	// Profile & Agent
	profiles := appdispatch.NewProfileService(store, log, tracer)

	role := dispatch.Role(cfg.Role)
	if _, err := profiles.EnsureRegistered(ctx, cfg.AgentID(), dispatch.Registration{
		Role:              role,
		Username:          cfg.Profile.Username,
		Profession:        cfg.Profile.Profession,
		WorkerDescription: cfg.Profile.Description,
		Number:            cfg.Profile.Number,
		IsVerified:        cfg.Profile.Verified,
		Location:          cfg.Profile.Location,
	}); err != nil {
		return fmt.Errorf("registering profile: %w", err)
	}

	agentMetrics, err := appdispatch.NewAgentMetrics(mp, role)
	if err != nil {
		return fmt.Errorf("creating agent metrics: %w", err)
	}

	muxCfg := mux.Config{
		Build:       build,
		Log:         log,
		Tracer:      tracer,
		Metrics:     apiMetrics,
		RateLimiter: common.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Ready:       store.ready,
		ProfileID:   cfg.AgentID(),
		Profiles:    profiles,
	}

	var a agent
	switch role {
	case dispatch.RoleWorker:
		w := appdispatch.NewWorkerAgent(appdispatch.WorkerAgentConfig{
			WorkerID:        cfg.AgentID(),
			PollInterval:    cfg.Agent.PollInterval,
			CustomerRefresh: cfg.Agent.CustomerRefresh,
		}, store, publisher, agentMetrics, log, tracer)
		muxCfg.Worker = w
		a = w
	case dispatch.RoleCustomer:
		c := appdispatch.NewCustomerAgent(appdispatch.CustomerAgentConfig{
			CustomerID:   cfg.AgentID(),
			PollInterval: cfg.Agent.PollInterval,
			OfferTTL:     cfg.Agent.OfferTTL,
		}, store, publisher, agentMetrics, log, tracer)
		muxCfg.Customer = c
		a = c
	default:
		return fmt.Errorf("unsupported role %q", cfg.Role)
	}

	// -------------------------------------------------------------------------
	// Start API Service
	webAPI := mux.WebAPI(muxCfg, routes.Routes(), mux.WithCORS(cfg.HTTP.CORSOrigins))

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      webAPI,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Info(ctx, "startup", "status", "api router started", "host", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info(ctx, "startup", "status", "metrics router started", "host", cfg.HTTP.MetricsAddr)
		if err := common.RunMetricsServer(gctx, cfg.HTTP.MetricsAddr); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	// -------------------------------------------------------------------------
	// Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutdown", "status", "shutdown started")
		defer log.Info(ctx, "shutdown", "status", "shutdown complete")

		a.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// initTelemetry exports traces and metrics over OTLP when an endpoint is
// configured. Without one, spans are dropped and metrics stay in process.
func initTelemetry(
	log *logger.Logger,
	cfg *config.Config,
	hostname string,
) (trace.Tracer, metric.MeterProvider, func(context.Context), error) {
	if cfg.Telemetry.Endpoint == "" {
		mp, err := otel.NewMeterProvider(serviceName)
		if err != nil {
			return nil, nil, nil, err
		}
		return noop.NewTracerProvider().Tracer(serviceName), mp, func(context.Context) {}, nil
	}

	traceProvider, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      serviceName,
		ExporterEndpoint: cfg.Telemetry.Endpoint,
		Host:             hostname,
		ExcludedRoutes: map[string]struct{}{
			"/v1/readiness": {},
			"/v1/liveness":  {},
			"/metrics":      {},
		},
		Probability: cfg.Telemetry.Probability,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"handyhire.role":   cfg.Role,
			"handyhire.id":     cfg.ID,
			"host.name":        hostname,
		},
		InsecureExporter: cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return traceProvider.Tracer(serviceName), otel.GetMeterProvider(), teardown, nil
}
