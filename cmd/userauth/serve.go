// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/postgres"
	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/internal/logging"
	"github.com/holomush/userauth/internal/observability"
	"github.com/holomush/userauth/internal/web"
	"github.com/holomush/userauth/pkg/errutil"
)

const serviceName = "userauth"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the authentication HTTP API together with the metrics and
health probe server. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the service until ctx is cancelled or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	logger := logging.Setup(serviceName, version, cfg.Log.Format, cmd.ErrOrStderr())
	logger.Info("starting userauth",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"hash_algorithm", cfg.Hash.Algorithm,
	)

	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, logger)
	if err != nil {
		return oops.With("operation", "open database").Wrap(err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(cfg.Database.URL, deps, logger); err != nil {
			return err
		}
	}

	hasher, err := auth.NewPasswordHasher(cfg.Hash.Algorithm, cfg.Hash.BcryptCost)
	if err != nil {
		return err
	}
	engine, err := auth.NewEngineWithLogger(postgres.NewUserStore(pool), hasher, logger)
	if err != nil {
		return err
	}

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErrs := make(chan error, 2)

	httpServer, err := deps.HTTPServerFactory(cfg.HTTP.Addr, engine, web.Options{
		Metrics:      metrics,
		Logger:       logger,
		CookieSecure: cfg.Session.CookieSecure,
	})
	if err != nil {
		return err
	}
	httpErrCh, err := httpServer.Start()
	if err != nil {
		return oops.With("operation", "start http server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrCh, "http", serveErrs, logger)

	var obsServer Server
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, registry, pool.Ping, logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopServer(httpServer, cfg, "http", logger)
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", serveErrs, logger)
	}

	cmd.Println("userauth listening on " + httpServer.Addr())
	logger.Info("userauth ready", "http_addr", httpServer.Addr())

	<-ctx.Done()
	logger.Info("shutting down")

	stopServer(httpServer, cfg, "http", logger)
	if obsServer != nil {
		stopServer(obsServer, cfg, "observability", logger)
	}

	select {
	case err := <-serveErrs:
		return err
	default:
	}
	logger.Info("shutdown complete")
	return nil
}

func applyMigrations(url string, deps *Deps, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("migrations applied")
	return nil
}

func stopServer(srv Server, cfg *config.Config, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error and
// forwards the error to failed.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, failed chan<- error, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			select {
			case failed <- oops.Code("SERVER_FAILED").With("server", serverName).Wrap(err):
			default:
			}
			cancel()
		}
	case <-ctx.Done():
	}
}
