// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/config"
	"github.com/holomush/passport/internal/identity"
	"github.com/holomush/passport/internal/identity/memory"
	"github.com/holomush/passport/internal/identity/postgres"
	"github.com/holomush/passport/internal/identity/redis"
	"github.com/holomush/passport/internal/observability"
	"github.com/holomush/passport/internal/store"
)

// Deps contains injectable dependencies for passport commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// StoresFactory opens the configured storage backends.
	// Default: openStores
	StoresFactory func(ctx context.Context, cfg *config.Config) (*Stores, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.StoresFactory == nil {
		out.StoresFactory = openStores
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker,
				observability.WithLogger(slog.Default().With("component", "observability")))
		}
	}
	return &out
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Stores holds the repositories behind the identity services.
type Stores struct {
	Anonymous     identity.AnonymousRepository
	Authenticated identity.AuthenticatedRepository
	Credentials   identity.CredentialRepository
	Sessions      identity.SessionRepository

	// Ping checks backend connectivity. Nil means always reachable.
	Ping func(ctx context.Context) error

	closers []func()
}

// Close releases backend connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Ready reports backend readiness for the observability server.
func (s *Stores) Ready(ctx context.Context) error {
	if s.Ping == nil {
		return nil
	}
	return s.Ping(ctx)
}

// openStores connects the backends selected in cfg.
func openStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	var pings []func(context.Context) error

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		opts := store.DefaultConnectOptions
		opts.MaxConns = cfg.Database.MaxConns
		p, err := store.Connect(ctx, cfg.Database.URL, opts)
		if err != nil {
			return nil, err
		}
		pool = p
		s.closers = append(s.closers, p.Close)
		pings = append(pings, p.Ping)
	}

	switch cfg.Store.Identities {
	case config.BackendPostgres:
		s.Anonymous = postgres.NewAnonymousRepository(pool)
		s.Authenticated = postgres.NewAuthenticatedRepository(pool)
		s.Credentials = postgres.NewCredentialRepository(pool)
	case config.BackendMemory:
		s.Anonymous = memory.NewAnonymousStore()
		s.Authenticated = memory.NewAuthenticatedStore()
		s.Credentials = memory.NewCredentialStore()
	default:
		s.Close()
		return nil, oops.Code("CONFIG_INVALID").With("backend", cfg.Store.Identities).Errorf("unknown identity backend")
	}

	switch cfg.Store.Sessions {
	case config.BackendPostgres:
		s.Sessions = postgres.NewSessionRepository(pool)
	case config.BackendRedis:
		client, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := client.Close(); err != nil {
				slog.Warn("failed to close redis client", "error", err)
			}
		})
		pings = append(pings, func(ctx context.Context) error { return pingRedis(ctx, client) })
		s.Sessions = redis.NewSessionStore(client, cfg.Redis.Prefix)
	case config.BackendMemory:
		s.Sessions = memory.NewSessionStore()
	default:
		s.Close()
		return nil, oops.Code("CONFIG_INVALID").With("backend", cfg.Store.Sessions).Errorf("unknown session backend")
	}

	if len(pings) > 0 {
		s.Ping = func(ctx context.Context) error {
			for _, ping := range pings {
				if err := ping(ctx); err != nil {
					return oops.Code("BACKEND_UNREACHABLE").Wrap(err)
				}
			}
			return nil
		}
	}
	return s, nil
}

func pingRedis(ctx context.Context, client *goredis.Client) error {
	//nolint:wrapcheck // wrapped by the caller
	return client.Ping(ctx).Err()
}
