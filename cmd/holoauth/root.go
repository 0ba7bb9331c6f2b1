// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/logging"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFiles   []string
)

// NewRootCmd creates the root command for the holoauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holoauth",
		Short: "holoauth - username/password accounts and sessions",
		Long: `holoauth registers accounts, verifies passwords with argon2id,
and binds logged-in users to cookie sessions over a JSON HTTP API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/holoauth/config.yaml)")
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig reads configuration with cmd's changed flags layered on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors carry their own codes
	return config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
		EnvFiles:   envFiles,
	})
}

// setupLogging installs the default logger for cfg.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	//nolint:wrapcheck // logging errors carry their own codes
	return logging.SetDefault(logging.Options{
		Service: "holoauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
}
