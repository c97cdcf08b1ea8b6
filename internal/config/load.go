package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "HANDYHIRE"

var defaults = map[string]any{
	"role":                     "worker",
	"log_level":                "info",
	"agent.poll_interval":      2 * time.Second,
	"agent.offer_ttl":          2 * time.Minute,
	"agent.customer_refresh":   30 * time.Second,
	"store.backend":            StoreMemory,
	"store.postgres_dsn":       "",
	"store.postgres_max_conns": int32(10),
	"store.redis_addr":         "localhost:6379",
	"store.redis_password":     "",
	"store.redis_db":           0,
	"store.redis_prefix":       "handyhire",
	"kafka.brokers":            []string{},
	"kafka.topic":              "handyhire.orders",
	"kafka.client_id":          "handyhire",
	"http.addr":                ":8080",
	"http.metrics_addr":        ":9090",
	"http.read_timeout":        5 * time.Second,
	"http.write_timeout":       10 * time.Second,
	"http.idle_timeout":        120 * time.Second,
	"http.shutdown_timeout":    20 * time.Second,
	"http.cors_origins":        []string{},
	"rate_limit.rps":           50.0,
	"rate_limit.burst":         100,
	"telemetry.endpoint":       "",
	"telemetry.probability":    0.05,
	"telemetry.insecure":       true,
	"profile.username":         "",
	"profile.profession":       "",
	"profile.description":      "",
	"profile.number":           "",
	"profile.location":         "",
	"profile.verified":         false,
	"id":                       "",
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"role":             "role",
	"id":               "id",
	"log-level":        "log_level",
	"poll-interval":    "agent.poll_interval",
	"offer-ttl":        "agent.offer_ttl",
	"customer-refresh": "agent.customer_refresh",
	"store":            "store.backend",
	"postgres-dsn":     "store.postgres_dsn",
	"redis-addr":       "store.redis_addr",
	"kafka-brokers":    "kafka.brokers",
	"kafka-topic":      "kafka.topic",
	"http-addr":        "http.addr",
	"metrics-addr":     "http.metrics_addr",
	"username":         "profile.username",
	"profession":       "profile.profession",
	"verified":         "profile.verified",
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to an optional YAML config file")
	fs.String("role", "worker", "worker or customer")
	fs.String("id", "", "profile id (uuid) this process acts for")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Duration("poll-interval", 2*time.Second, "interval between polls of the record store")
	fs.Duration("offer-ttl", 2*time.Minute, "how long an order may stay unanswered; 0 disables expiry")
	fs.Duration("customer-refresh", 30*time.Second, "how long a worker reuses a customer's display info")
	fs.String("store", StoreMemory, "record store backend: memory, postgres or redis")
	fs.String("postgres-dsn", "", "postgres connection string")
	fs.String("redis-addr", "localhost:6379", "redis address")
	fs.StringSlice("kafka-brokers", nil, "kafka brokers; empty publishes to the in-process bus")
	fs.String("kafka-topic", "handyhire.orders", "topic for order lifecycle events")
	fs.String("http-addr", ":8080", "API listen address")
	fs.String("metrics-addr", ":9090", "Prometheus listen address")
	fs.String("username", "", "username used when registering a new profile")
	fs.String("profession", "", "profession used when registering a new worker")
	fs.Bool("verified", false, "register a new worker as verified")
	return fs
}

// Load builds the configuration for args (without the program name).
func Load(args []string) (*Config, error) {
	loadDotEnvUp(6)

	fs := newFlagSet("handyhire")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}

	path, _ := fs.GetString("config")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnvUp loads the first .env found in the working directory or one of
// its parents. Variables already set in the environment win.
func loadDotEnvUp(maxDepth int) {
	dir, err := os.Getwd()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	for i := 0; i <= maxDepth; i++ {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
