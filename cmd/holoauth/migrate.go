// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/store"
)

// migrator is the subset of *store.Migrator used by the migrate commands.
type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage PostgreSQL schema migrations",
		Long: `Apply, roll back, or inspect the embedded PostgreSQL migrations.
The SQLite driver creates its schema on open and needs no migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			printVersion(cmd, version, dirty)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateStatus),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag.
Use after repairing a failed migration by hand. -1 means no version.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced schema version to %d\n", version)
			return nil
		}),
	})

	return cmd
}

// withMigrator resolves the database URL, opens a migrator, and closes it after run.
func withMigrator(run func(*cobra.Command, migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		databaseURL, err := migrationDatabaseURL(cfg)
		if err != nil {
			return err
		}

		m, err := newMigrator(databaseURL)
		if err != nil {
			return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
		}
		defer func() { _ = m.Close() }()

		return run(cmd, m, args)
	}
}

// migrationDatabaseURL returns the PostgreSQL URL migrations run against.
func migrationDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.Store.Driver != config.DriverPostgres {
		return "", oops.Code("MIGRATION_UNSUPPORTED").
			With("store.driver", cfg.Store.Driver).
			Errorf("migrations apply to the postgres driver only")
	}
	if cfg.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	return cfg.DatabaseURL, nil
}

func runMigrateStatus(cmd *cobra.Command, m migrator, _ []string) error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	printVersion(cmd, status.Version, status.Dirty)
	printMigrations(cmd, "Applied", status.Applied)
	printMigrations(cmd, "Pending", status.Pending)
	return nil
}

func printVersion(cmd *cobra.Command, version uint, dirty bool) {
	if dirty {
		cmd.Printf("Schema version: %d (dirty; run 'holoauth migrate force' after repair)\n", version)
		return
	}
	cmd.Printf("Schema version: %d\n", version)
}

func printMigrations(cmd *cobra.Command, label string, migrations []store.Migration) {
	if len(migrations) == 0 {
		cmd.Printf("%s: none\n", label)
		return
	}
	cmd.Printf("%s:\n", label)
	for _, mig := range migrations {
		cmd.Printf("  %s\n", mig.Name)
	}
}

// parseForceVersion parses a version argument. Parsing stops at the first
// non-digit, so "3abc" is 3.
func parseForceVersion(arg string) (int, error) {
	if strings.TrimSpace(arg) == "" {
		return 0, oops.Code("INVALID_VERSION").Errorf("version is required")
	}
	var version int
	if _, err := fmt.Sscanf(arg, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Wrap(err)
	}
	return version, nil
}
