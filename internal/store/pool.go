// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32
	// PingAttempts is how many times the first ping is retried.
	PingAttempts uint64
	// PingBackoff is the initial delay between pings; it doubles each retry.
	PingBackoff time.Duration
}

// DefaultConnectOptions waits roughly six seconds for the database.
var DefaultConnectOptions = ConnectOptions{PingAttempts: 5, PingBackoff: 200 * time.Millisecond}

// Connect opens a pgx pool for databaseURL and blocks until the server answers
// a ping or the attempts run out.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DATABASE_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if opts.PingBackoff <= 0 {
		opts.PingBackoff = DefaultConnectOptions.PingBackoff
	}
	backoff := retry.WithMaxRetries(opts.PingAttempts, retry.NewExponential(opts.PingBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", opts.PingAttempts+1).
			Wrap(err)
	}
	return pool, nil
}
