// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads passport configuration from defaults, a YAML file
// and command-line flags.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/passport/internal/xdg"
)

// Store backend names.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Environment variables that fill empty connection URLs.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisURL    = "REDIS_URL"
)

// Config is the complete passport configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Store    StoreConfig    `koanf:"store" json:"store,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Redis    RedisConfig    `koanf:"redis" json:"redis,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Sweeper  SweeperConfig  `koanf:"sweeper" json:"sweeper,omitempty"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text,description=Log output format"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,description=Minimum log level"`
}

// StoreConfig selects the storage backends.
type StoreConfig struct {
	Identities string `koanf:"identities" json:"identities,omitempty" jsonschema:"enum=postgres,enum=memory,description=Backend for identities and credentials"`
	Sessions   string `koanf:"sessions" json:"sessions,omitempty" jsonschema:"enum=postgres,enum=redis,enum=memory,description=Backend for sessions"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL      string `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	MaxConns int32  `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=0,description=Pool size; 0 uses the pgx default"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	URL    string `koanf:"url" json:"url,omitempty" jsonschema:"description=Redis connection URL"`
	Prefix string `koanf:"prefix" json:"prefix,omitempty" jsonschema:"description=Key prefix for session keys"`
}

// MetricsConfig holds the observability server settings.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Listen address for /metrics and health probes; empty disables"`
}

// SweeperConfig tunes the orphan sweeper.
type SweeperConfig struct {
	Interval Duration `koanf:"interval" json:"interval,omitempty"`
	Grace    Duration `koanf:"grace" json:"grace,omitempty"`
	Batch    int      `koanf:"batch" json:"batch,omitempty" jsonschema:"minimum=0,description=Identities examined per pass; 0 means unlimited"`
}

// Duration is a time.Duration written as a Go duration string ("10m").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_INVALID_DURATION").With("value", string(text)).Wrap(err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 10m or 1h30m",
	}
}

// defaults are loaded before the config file.
var defaults = map[string]any{
	"log.format":         "json",
	"log.level":          "info",
	"store.identities":   BackendPostgres,
	"store.sessions":     BackendPostgres,
	"database.max_conns": 0,
	"redis.prefix":       "passport:",
	"metrics.addr":       "127.0.0.1:9100",
	"sweeper.interval":   "10m",
	"sweeper.grace":      "1h",
	"sweeper.batch":      500,
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-format":       "log.format",
	"log-level":        "log.level",
	"identities-store": "store.identities",
	"sessions-store":   "store.sessions",
	"database-url":     "database.url",
	"redis-url":        "redis.url",
	"metrics-addr":     "metrics.addr",
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "json", "log format (json, text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("identities-store", BackendPostgres, "identity backend (postgres, memory)")
	fs.String("sessions-store", BackendPostgres, "session backend (postgres, redis, memory)")
	fs.String("database-url", "", "PostgreSQL URL (default $"+EnvDatabaseURL+")")
	fs.String("redis-url", "", "Redis URL (default $"+EnvRedisURL+")")
	fs.String("metrics-addr", "127.0.0.1:9100", "observability listen address, empty to disable")
}

// Load builds the configuration. An empty path loads the XDG config file
// when it exists. Only flags that were set on the command line override
// file values. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	explicit := path != ""
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		switch {
		case err == nil:
		case !explicit && errors.Is(err, fs.ErrNotExist):
			path = ""
		default:
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").With("path", path).Wrap(err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Database.URL == "" {
		c.Database.URL = os.Getenv(EnvDatabaseURL)
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv(EnvRedisURL)
	}
}

// UsesPostgres reports whether any backend needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.Store.Identities == BackendPostgres || c.Store.Sessions == BackendPostgres
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Identities {
	case BackendPostgres, BackendMemory:
	default:
		problems = append(problems, "store.identities must be postgres or memory")
	}
	switch c.Store.Sessions {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		problems = append(problems, "store.sessions must be postgres, redis or memory")
	}
	if c.UsesPostgres() && c.Database.URL == "" {
		problems = append(problems, "database.url is required for the postgres backend")
	}
	if c.Store.Sessions == BackendRedis && c.Redis.URL == "" {
		problems = append(problems, "redis.url is required for the redis session backend")
	}
	if c.Database.MaxConns < 0 {
		problems = append(problems, "database.max_conns must not be negative")
	}
	if c.Sweeper.Interval <= 0 {
		problems = append(problems, "sweeper.interval must be positive")
	}
	if c.Sweeper.Grace < 0 {
		problems = append(problems, "sweeper.grace must not be negative")
	}
	if c.Sweeper.Batch < 0 {
		problems = append(problems, "sweeper.batch must not be negative")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
