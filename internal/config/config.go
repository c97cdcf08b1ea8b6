// Package config loads process configuration from flags, HANDYHIRE_*
// environment variables, an optional YAML file and a local .env file, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the root configuration for one handyhire process. A process runs
// as exactly one worker or one customer.
type Config struct {
	Role     string `mapstructure:"role"`
	ID       string `mapstructure:"id"`
	LogLevel string `mapstructure:"log_level"`

	Profile   Profile   `mapstructure:"profile"`
	Agent     Agent     `mapstructure:"agent"`
	Store     Store     `mapstructure:"store"`
	Kafka     Kafka     `mapstructure:"kafka"`
	HTTP      HTTP      `mapstructure:"http"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Telemetry Telemetry `mapstructure:"telemetry"`
}

// Profile holds the sign-up fields used when the id has no record yet.
type Profile struct {
	Username    string `mapstructure:"username"`
	Profession  string `mapstructure:"profession"`
	Description string `mapstructure:"description"`
	Number      string `mapstructure:"number"`
	Location    string `mapstructure:"location"`
	Verified    bool   `mapstructure:"verified"`
}

// Agent tunes the poll loops.
type Agent struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	OfferTTL     time.Duration `mapstructure:"offer_ttl"`

	// CustomerRefresh bounds how long a worker shows cached customer info.
	CustomerRefresh time.Duration `mapstructure:"customer_refresh"`
}

// Store selects and configures the record store.
type Store struct {
	Backend          string `mapstructure:"backend"`
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
	RedisAddr        string `mapstructure:"redis_addr"`
	RedisPassword    string `mapstructure:"redis_password"`
	RedisDB          int    `mapstructure:"redis_db"`
	RedisPrefix      string `mapstructure:"redis_prefix"`
}

// Kafka configures lifecycle event publishing. No brokers means events go to
// the in-process bus.
type Kafka struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// HTTP configures the API and metrics listeners.
type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// RateLimit bounds API request throughput.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Telemetry configures the OTLP exporters. An empty endpoint disables export.
type Telemetry struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Probability float64 `mapstructure:"probability"`
	Insecure    bool    `mapstructure:"insecure"`
}

// AgentID returns the parsed profile id.
func (c *Config) AgentID() uuid.UUID {
	id, _ := uuid.Parse(c.ID)
	return id
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Role {
	case "worker", "customer":
	default:
		errs = append(errs, fmt.Errorf("role must be worker or customer, got %q", c.Role))
	}

	if _, err := uuid.Parse(c.ID); err != nil {
		errs = append(errs, fmt.Errorf("id must be a uuid: %w", err))
	}

	if c.Agent.PollInterval <= 0 {
		errs = append(errs, errors.New("agent.poll_interval must be positive"))
	}
	if c.Agent.OfferTTL < 0 {
		errs = append(errs, errors.New("agent.offer_ttl must not be negative"))
	}
	if c.Agent.CustomerRefresh <= 0 {
		errs = append(errs, errors.New("agent.customer_refresh must be positive"))
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres backend"))
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of memory, postgres, redis, got %q", c.Store.Backend))
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}

	if c.Telemetry.Probability < 0 || c.Telemetry.Probability > 1 {
		errs = append(errs, errors.New("telemetry.probability must be within [0, 1]"))
	}

	return errors.Join(errs...)
}
