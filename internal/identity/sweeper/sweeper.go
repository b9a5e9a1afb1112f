// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sweeper removes anonymous identities that never got a session.
//
// Provisioning writes the identity and its session separately. When the
// session write fails the identity is left behind with nothing pointing at
// it; the sweeper reclaims those once they are older than a grace period.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/passport/internal/identity"
	"github.com/holomush/passport/pkg/errutil"
)

// Config controls sweeping.
type Config struct {
	Interval time.Duration // How often a pass runs
	Grace    time.Duration // Minimum identity age before it may be swept
	Batch    int           // Maximum identities examined per pass; zero means all
	Attempts uint64        // Tries per repository call, including the first
	Backoff  time.Duration // Initial retry delay; doubles per retry
}

// DefaultConfig returns the default sweeper configuration.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Minute,
		Grace:    time.Hour,
		Batch:    500,
		Attempts: 3,
		Backoff:  100 * time.Millisecond,
	}
}

// Metrics receives sweep outcomes.
type Metrics interface {
	RecordSweep(swept, failed int)
}

type nopMetrics struct{}

func (nopMetrics) RecordSweep(int, int) {}

// Result summarizes one pass.
type Result struct {
	Scanned int // Identities older than the grace period
	Swept   int // Deleted because they had no session
	Kept    int // Still referenced by at least one session
	Failed  int // Could not be checked or deleted
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) { s.clock = clock }
}

// Sweeper deletes orphaned anonymous identities.
type Sweeper struct {
	cfg       Config
	anonymous identity.AnonymousRepository
	sessions  identity.SessionRepository
	logger    *slog.Logger
	metrics   Metrics
	clock     func() time.Time

	// mu serializes passes and guards cursor, the position the next pass
	// resumes from when the previous one filled its batch.
	mu     sync.Mutex
	cursor identity.AnonymousCursor

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Sweeper.
func New(anonymous identity.AnonymousRepository, sessions identity.SessionRepository, cfg Config, opts ...Option) (*Sweeper, error) {
	if anonymous == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("anonymous repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	}
	if cfg.Interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").With("interval", cfg.Interval.String()).Errorf("interval must be positive")
	}
	if cfg.Grace < 0 {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").With("grace", cfg.Grace.String()).Errorf("grace must not be negative")
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultConfig().Backoff
	}

	s := &Sweeper{
		cfg:       cfg,
		anonymous: anonymous,
		sessions:  sessions,
		logger:    slog.Default(),
		metrics:   nopMetrics{},
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s, nil
}

// SweepOnce runs a single pass. Per-identity failures are counted in the
// result and do not abort the pass; only a failed listing returns an error.
//
// A pass examines at most Batch identities. When the batch is full the next
// pass continues after the last identity examined, so identities that are
// still in use cannot hide newer orphans. A short batch restarts the scan
// from the oldest identity.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	cutoff := s.clock().Add(-s.cfg.Grace)

	var candidates []*identity.Anonymous
	err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		candidates, err = s.anonymous.ListCreatedBefore(ctx, cutoff, s.cursor, s.cfg.Batch)
		return err
	})
	if err != nil {
		s.metrics.RecordSweep(0, 1)
		return res, oops.Code("SWEEP_LIST_FAILED").
			With("cutoff", cutoff).
			Wrap(err)
	}

	res.Scanned = len(candidates)
	resume := s.cfg.Batch > 0 && len(candidates) >= s.cfg.Batch
	next := s.cursor
	for _, anon := range candidates {
		if ctx.Err() != nil {
			resume = true
			break
		}
		swept, err := s.sweep(ctx, anon)
		switch {
		case err != nil:
			res.Failed++
			errutil.LogWarn(s.logger, "orphan sweep failed for identity", err)
		case swept:
			res.Swept++
		default:
			res.Kept++
		}
		next = identity.CursorAfter(anon)
	}
	if resume {
		s.cursor = next
	} else {
		s.cursor = identity.AnonymousCursor{}
	}

	s.metrics.RecordSweep(res.Swept, res.Failed)
	if res.Swept > 0 || res.Failed > 0 {
		s.logger.InfoContext(ctx, "orphan sweep finished",
			"scanned", res.Scanned,
			"swept", res.Swept,
			"kept", res.Kept,
			"failed", res.Failed)
	}
	return res, nil
}

// sweep deletes anon if it has no sessions. It reports whether it deleted.
func (s *Sweeper) sweep(ctx context.Context, anon *identity.Anonymous) (bool, error) {
	var sessions []*identity.Session
	err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		sessions, err = s.sessions.FindByUser(ctx, anon.ID)
		return err
	})
	if err != nil {
		return false, oops.Code("SWEEP_CHECK_FAILED").With("user_id", anon.ID.String()).Wrap(err)
	}
	if len(sessions) > 0 {
		return false, nil
	}

	err = s.retry(ctx, func(ctx context.Context) error {
		return s.anonymous.Delete(ctx, anon.ID)
	})
	if identity.IsNotFound(err) {
		// Removed concurrently, e.g. promoted by registration.
		return false, nil
	}
	if err != nil {
		return false, oops.Code("SWEEP_DELETE_FAILED").With("user_id", anon.ID.String()).Wrap(err)
	}
	s.logger.DebugContext(ctx, "orphaned anonymous identity swept", "user_id", anon.ID.String())
	return true, nil
}

// retry runs fn with exponential backoff. ErrNotFound is never retried.
// Once attempts run out the last error from fn is returned unchanged.
func (s *Sweeper) retry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(s.cfg.Attempts-1, retry.NewExponential(s.cfg.Backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || identity.IsNotFound(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// Run sweeps immediately and then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			errutil.LogError(s.logger, "orphan sweep failed", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Start runs the sweeper in a background goroutine until Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(ctx)
	}()
}

// Stop cancels a started sweeper and waits for the current pass to end.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
