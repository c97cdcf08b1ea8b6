package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/config"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
	"github.com/ahrav/handyhire/internal/infra/eventbus/kafka"
	"github.com/ahrav/handyhire/internal/infra/eventbus/memory"
	"github.com/ahrav/handyhire/internal/infra/storage"
	memstore "github.com/ahrav/handyhire/internal/infra/storage/dispatch/memory"
	pgstore "github.com/ahrav/handyhire/internal/infra/storage/dispatch/postgres"
	redisstore "github.com/ahrav/handyhire/internal/infra/storage/dispatch/redis"
	"github.com/ahrav/handyhire/pkg/common/logger"
)

// openedStore is a record store plus the hooks main needs around it.
type openedStore struct {
	dispatch.RecordStore
	ready func(ctx context.Context) error
	close func()
}

func startupBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}

// openStore connects the configured backend, waiting for it to come up.
func openStore(ctx context.Context, cfg config.Store, log *logger.Logger, tracer trace.Tracer) (*openedStore, error) {
	switch cfg.Backend {
	case config.StorePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("parsing db config: %w", err)
		}
		if cfg.PostgresMaxConns > 0 {
			poolCfg.MaxConns = cfg.PostgresMaxConns
		}
		poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("creating db pool: %w", err)
		}

		err = backoff.Retry(func() error {
			if err := pool.Ping(ctx); err != nil {
				log.Warn(ctx, "startup", "status", "postgres not ready, retrying", "err", err)
				return err
			}
			return storage.RunMigrations(pool)
		}, backoff.WithContext(startupBackoff(), ctx))
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("preparing postgres: %w", err)
		}

		return &openedStore{
			RecordStore: pgstore.NewRecordStore(pool, tracer),
			ready:       pool.Ping,
			close:       pool.Close,
		}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		err := backoff.Retry(func() error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn(ctx, "startup", "status", "redis not ready, retrying", "err", err)
				return err
			}
			return nil
		}, backoff.WithContext(startupBackoff(), ctx))
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting redis: %w", err)
		}

		return &openedStore{
			RecordStore: redisstore.NewRecordStore(client, cfg.RedisPrefix, tracer),
			ready:       func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close:       func() { _ = client.Close() },
		}, nil

	default:
		return &openedStore{
			RecordStore: memstore.NewRecordStore(),
			close:       func() {},
		}, nil
	}
}

// openPublisher returns the lifecycle event publisher. Without brokers the
// events go to an in-process bus whose only subscriber logs them.
func openPublisher(
	ctx context.Context,
	cfg config.Kafka,
	log *logger.Logger,
	metrics kafka.EventBusMetrics,
	tracer trace.Tracer,
) (events.DomainEventPublisher, func(), error) {
	if len(cfg.Brokers) > 0 {
		bus, err := kafka.ConnectEventBus(
			&kafka.ClientConfig{Brokers: cfg.Brokers, ClientID: cfg.ClientID},
			&kafka.EventBusConfig{OrderEventsTopic: cfg.Topic},
			log, metrics, tracer,
		)
		if err != nil {
			return nil, nil, err
		}
		closeBus := func() {
			if err := bus.Close(); err != nil {
				log.Error(context.Background(), "shutdown", "status", "closing event bus", "err", err)
			}
		}
		return kafka.NewDomainEventPublisher(bus), closeBus, nil
	}

	broker := memory.NewBroker()
	eventLog := log.With("component", "event_log")
	if err := broker.Subscribe(ctx, func(ctx context.Context, env events.EventEnvelope) error {
		eventLog.Info(ctx, "Order lifecycle event", "type", string(env.Type), "key", env.Key)
		return nil
	}); err != nil {
		return nil, nil, err
	}

	return kafka.NewDomainEventPublisher(broker), func() { _ = broker.Close() }, nil
}
