// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/httpapi"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/session"
	"github.com/holomush/holoauth/internal/store"
)

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 10 * time.Second

// serveOptions holds flags that are not configuration keys.
type serveOptions struct {
	migrate bool
	deps    *Deps

	// ready, if set, receives the API address once it is listening.
	ready chan<- string
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the auth HTTP API, the metrics and health endpoint, and the
expired-session sweeper. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts)
		},
	}

	cmd.Flags().String("http-addr", "", "API listen address (overrides http.addr)")
	cmd.Flags().String("metrics-addr", "", "metrics/health listen address, empty disables (overrides metrics.addr)")
	cmd.Flags().String("log-format", "", "log format: json or text (overrides log.format)")
	cmd.Flags().String("log-level", "", "log level (overrides log.level)")
	cmd.Flags().String("store-driver", "", "user store: postgres or sqlite (overrides store.driver)")
	cmd.Flags().String("sqlite-path", "", "SQLite database file (overrides store.sqlite_path)")
	cmd.Flags().String("session-backend", "", "session store: postgres, redis or memory (overrides session.backend)")
	cmd.Flags().Duration("session-ttl", 0, "session lifetime (overrides session.ttl)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending PostgreSQL migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts *serveOptions) error {
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting holoauth",
		"version", version,
		"http_addr", cfg.HTTP.Addr,
		"store_driver", cfg.Store.Driver,
		"session_backend", cfg.Session.Backend,
	)

	if opts.migrate {
		if err := migrateUp(cfg, logger); err != nil {
			return err
		}
	}

	app, err := buildComponents(ctx, cfg, logger, opts.deps)
	if err != nil {
		return err
	}
	defer app.Close()

	api, err := httpapi.New(app.Service, httpapi.Options{
		CookieName:     cfg.Session.CookieName,
		CookieSecure:   cfg.Session.CookieSecure,
		SessionTTL:     cfg.Session.TTL,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpSrv := &http.Server{
		Handler:           api,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http api listening", "addr", listener.Addr().String())
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
		}
		return nil
	})

	if cfg.Metrics.Addr != "" {
		obs := observability.NewServer(cfg.Metrics.Addr, app.Ready, logger,
			auth.RegisterMetrics,
			session.RegisterMetrics,
			httpapi.RegisterMetrics,
		)
		obsErrCh, err := obs.Start()
		if err != nil {
			_ = listener.Close()
			return err
		}
		g.Go(func() error {
			select {
			case obsErr, ok := <-obsErrCh:
				if ok && obsErr != nil {
					return oops.Code("OBSERVABILITY_FAILED").Wrap(obsErr)
				}
				return nil
			case <-gctx.Done():
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return obs.Stop(stopCtx)
			}
		})
	}

	if app.Sweeper != nil {
		g.Go(func() error { return app.Sweeper.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := httpSrv.Shutdown(stopCtx); shutdownErr != nil {
			return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(shutdownErr)
		}
		return nil
	})

	if opts.ready != nil {
		opts.ready <- listener.Addr().String()
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// migrateUp applies pending migrations for the postgres driver.
func migrateUp(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Store.Driver != config.DriverPostgres {
		logger.Info("skipping migrations; sqlite schema is created on open")
		return nil
	}
	migrator, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return err
	}
	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "version", version)
	return nil
}
