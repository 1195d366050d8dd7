// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store opens the PostgreSQL pool and manages the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connect retry bounds.
const (
	connectBaseDelay = 250 * time.Millisecond
	connectMaxDelay  = 5 * time.Second
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// Open creates a connection pool for databaseURL and waits until the server
// answers, retrying with exponential backoff up to attempts times.
func Open(ctx context.Context, databaseURL string, attempts int, logger *slog.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DATABASE_URL_MISSING").Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DATABASE_URL_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitReady(ctx, pool, attempts, connectBaseDelay, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)
	return pool, nil
}

func waitReady(ctx context.Context, db pinger, attempts int, base time.Duration, logger *slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	backoff := retry.NewExponential(base)
	backoff = retry.WithCappedDuration(connectMaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff) //nolint:gosec // attempts >= 1

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.Ping(ctx); err != nil {
			logger.Warn("database not ready", "attempt", attempt, "max_attempts", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
