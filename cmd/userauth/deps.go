package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/observability"
	"github.com/holomush/userauth/internal/store"
	"github.com/holomush/userauth/internal/web"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// PoolOpener connects to the database.
	// Default: store.Open
	PoolOpener func(ctx context.Context, url string, attempts int, logger *slog.Logger) (Pool, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// HTTPServerFactory creates the API server.
	// Default: web.NewServer
	HTTPServerFactory func(addr string, authn web.Authenticator, opts web.Options) (Server, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, registry *prometheus.Registry, readiness observability.ReadinessChecker, logger *slog.Logger) Server
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.PoolOpener == nil {
		out.PoolOpener = func(ctx context.Context, url string, attempts int, logger *slog.Logger) (Pool, error) {
			pool, err := store.Open(ctx, url, attempts, logger)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.HTTPServerFactory == nil {
		out.HTTPServerFactory = func(addr string, authn web.Authenticator, opts web.Options) (Server, error) {
			srv, err := web.NewServer(addr, authn, opts)
			if err != nil {
				return nil, err
			}
			return srv, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, registry *prometheus.Registry, readiness observability.ReadinessChecker, logger *slog.Logger) Server {
			return observability.NewServer(addr, registry, readiness, logger)
		}
	}
	return &out
}

// Pool wraps the methods used from *pgxpool.Pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
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

// Server wraps the lifecycle shared by the API and observability servers.
type Server interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

var _ web.Authenticator = (*auth.Engine)(nil)
