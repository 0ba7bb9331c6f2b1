// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/session"
	"github.com/holomush/holoauth/internal/xdg"
)

// FileName is the config file looked up in the XDG config directory.
const FileName = "config.yaml"

// DefaultSQLiteFile is the database file created in the XDG data directory
// when the sqlite driver is selected without a path.
const DefaultSQLiteFile = "holoauth.db"

// defaults are loaded before any file or flag.
func defaults() map[string]any {
	return map[string]any{
		"http.addr":                    "127.0.0.1:8080",
		"http.read_header_timeout":     "10s",
		"http.request_timeout":         "30s",
		"metrics.addr":                 "127.0.0.1:9100",
		"log.format":                   "json",
		"log.level":                    "info",
		"store.driver":                 DriverPostgres,
		"store.sqlite_path":            "",
		"store.connect_attempts":       5,
		"session.backend":              BackendPostgres,
		"session.ttl":                  session.DefaultTTL.String(),
		"session.cookie_name":          "holoauth_session",
		"session.cookie_secure":        true,
		"session.sweep_interval":       (10 * time.Minute).String(),
		"session.redis_addr":           "",
		"session.redis_db":             0,
		"policy.username_length_floor": auth.DefaultUsernameLengthFloor,
		"policy.password_length_floor": auth.DefaultPasswordLengthFloor,
		"hasher.memory_kib":            0,
		"hasher.iterations":            0,
		"hasher.threads":               0,
		"hasher.max_concurrent":        0,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"store-driver":    "store.driver",
	"sqlite-path":     "store.sqlite_path",
	"session-backend": "session.backend",
	"session-ttl":     "session.ttl",
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// ConfigFile is an explicit path; missing is an error. When empty the
	// XDG config file is used if it exists.
	ConfigFile string
	// Flags, if set, overrides keys for flags the user changed.
	Flags *pflag.FlagSet
	// EnvFiles are .env files loaded into the process environment without
	// overriding variables already set. Missing files are skipped.
	EnvFiles []string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds and validates a Config.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	path, err := resolveConfigFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")
	cfg.RedisPassword = getenv("REDIS_PASSWORD")

	if cfg.Store.Driver == DriverSQLite && cfg.Store.SQLitePath == "" {
		dir, err := xdg.DataDir()
		if err != nil {
			return nil, err
		}
		cfg.Store.SQLitePath = filepath.Join(dir, DefaultSQLiteFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	for _, name := range files {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return oops.Code("CONFIG_ENV_FAILED").With("path", name).Wrap(err)
		}
	}
	return nil
}

func resolveConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", oops.Code("CONFIG_NOT_FOUND").With("path", explicit).Wrap(err)
		}
		return explicit, nil
	}

	dir, err := xdg.ConfigDir()
	if err != nil {
		// No home directory means no default file, not a failure.
		return "", nil //nolint:nilerr // defaults still apply
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err != nil {
		return "", nil //nolint:nilerr // optional file
	}
	return candidate, nil
}
