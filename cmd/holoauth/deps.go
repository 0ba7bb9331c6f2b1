// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	authpg "github.com/holomush/holoauth/internal/auth/postgres"
	authsqlite "github.com/holomush/holoauth/internal/auth/sqlite"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/session"
	"github.com/holomush/holoauth/internal/store"
	"github.com/holomush/holoauth/internal/xdg"
)

// Deps contains injectable constructors for external resources.
// All fields with nil values will use their default implementations.
type Deps struct {
	// ConnectPostgres opens a pool. Default: store.Connect
	ConnectPostgres func(ctx context.Context, url string, opts store.ConnectOptions) (*pgxpool.Pool, error)

	// OpenSQLite opens the SQLite user database. Default: sqlite.Open
	OpenSQLite func(ctx context.Context, path string) (*sql.DB, error)

	// NewRedis builds a redis client. Default: redis.NewClient
	NewRedis func(opts *redis.Options) *redis.Client
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.ConnectPostgres == nil {
		out.ConnectPostgres = store.Connect
	}
	if out.OpenSQLite == nil {
		out.OpenSQLite = authsqlite.Open
	}
	if out.NewRedis == nil {
		out.NewRedis = redis.NewClient
	}
	return &out
}

// components is the wired application.
type components struct {
	Service *auth.Service
	Binder  *session.Binder

	// Sweeper is nil for stores that expire records themselves.
	Sweeper *session.Sweeper

	checks  []func(ctx context.Context) error
	closers []func()
}

// Ready pings every backing store.
func (c *components) Ready(ctx context.Context) error {
	for _, check := range c.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildComponents connects the configured backends and assembles the service.
// On error, anything already opened is closed.
func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (_ *components, err error) {
	deps = deps.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	c := &components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	var pool *pgxpool.Pool
	if cfg.Store.Driver == config.DriverPostgres || cfg.Session.Backend == config.BackendPostgres {
		pool, err = deps.ConnectPostgres(ctx, cfg.DatabaseURL, store.ConnectOptions{
			Attempts: cfg.Store.ConnectAttempts,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
		c.checks = append(c.checks, pool.Ping)
	}

	var users auth.UserRepository
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		users = authpg.NewUserRepository(pool)
	case config.DriverSQLite:
		if cfg.Store.SQLitePath != ":memory:" {
			if err := xdg.EnsureDir(filepath.Dir(cfg.Store.SQLitePath)); err != nil {
				return nil, err
			}
		}
		db, openErr := deps.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if openErr != nil {
			return nil, openErr
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		c.checks = append(c.checks, db.PingContext)
		users = authsqlite.NewUserRepository(db)
	default:
		return nil, oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case config.BackendPostgres:
		pg := session.NewPostgresStore(pool)
		sessions = pg
		c.Sweeper = session.NewSweeper(pg, cfg.Session.SweepInterval, logger)
	case config.BackendMemory:
		mem := session.NewMemoryStore()
		sessions = mem
		c.Sweeper = session.NewSweeper(mem, cfg.Session.SweepInterval, logger)
	case config.BackendRedis:
		client := deps.NewRedis(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		c.closers = append(c.closers, func() { _ = client.Close() })
		c.checks = append(c.checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		sessions = session.NewRedisStore(client, session.DefaultRedisPrefix)
	default:
		return nil, oops.Code("CONFIG_INVALID").Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	c.Binder, err = session.NewBinder(sessions,
		session.WithTTL(cfg.Session.TTL),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return nil, err
	}

	c.Service, err = auth.NewAuthService(users, c.Binder, hasher,
		auth.WithLogger(logger),
		auth.WithPolicy(cfg.AuthPolicy()),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
