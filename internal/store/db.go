// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 200 * time.Millisecond
)

type openConfig struct {
	attempts uint64
	backoff  time.Duration
	maxConns int32
	logger   *slog.Logger
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// WithConnectAttempts sets how many times the initial ping is tried.
func WithConnectAttempts(n uint64) OpenOption {
	return func(c *openConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithConnectBackoff sets the first retry delay. Later delays double.
func WithConnectBackoff(d time.Duration) OpenOption {
	return func(c *openConfig) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithMaxConns caps the pool size. Zero keeps the pgx default.
func WithMaxConns(n int32) OpenOption {
	return func(c *openConfig) {
		c.maxConns = n
	}
}

// WithOpenLogger logs failed connection attempts.
func WithOpenLogger(logger *slog.Logger) OpenOption {
	return func(c *openConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func parsePoolConfig(databaseURL string, cfg openConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if cfg.maxConns > 0 {
		poolCfg.MaxConns = cfg.maxConns
	}
	return poolCfg, nil
}

// Open creates a connection pool for databaseURL and waits until the
// database answers a ping. The caller owns the pool and must Close it.
func Open(ctx context.Context, databaseURL string, opts ...OpenOption) (*pgxpool.Pool, error) {
	cfg := openConfig{
		attempts: DefaultConnectAttempts,
		backoff:  DefaultConnectBackoff,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := parsePoolConfig(databaseURL, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(cfg.attempts-1, retry.NewExponential(cfg.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			cfg.logger.WarnContext(ctx, "database not reachable",
				"attempt", attempt,
				"max_attempts", cfg.attempts,
				"error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
