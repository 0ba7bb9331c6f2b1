// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads holoauth settings.
//
// Precedence, lowest first: built-in defaults, the YAML config file, then
// command-line flags the user actually set. Secrets never live in the file:
// DATABASE_URL and REDIS_PASSWORD come from the environment, which may be
// seeded from a .env file.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Session backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config is the full holoauth configuration.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Store   StoreConfig   `koanf:"store"`
	Session SessionConfig `koanf:"session"`
	Policy  PolicyConfig  `koanf:"policy"`
	Hasher  HasherConfig  `koanf:"hasher"`

	// Read from the environment only.
	DatabaseURL   string `koanf:"-"`
	RedisPassword string `koanf:"-"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

// MetricsConfig configures the observability listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// StoreConfig selects the user repository.
type StoreConfig struct {
	Driver          string `koanf:"driver" validate:"oneof=postgres sqlite"`
	SQLitePath      string `koanf:"sqlite_path"`
	ConnectAttempts uint64 `koanf:"connect_attempts" validate:"gte=1"`
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	Backend       string        `koanf:"backend" validate:"oneof=postgres redis memory"`
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	CookieName    string        `koanf:"cookie_name" validate:"required"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`
}

// PolicyConfig mirrors auth.Policy.
type PolicyConfig struct {
	UsernameLengthFloor int `koanf:"username_length_floor" validate:"gte=0"`
	PasswordLengthFloor int `koanf:"password_length_floor" validate:"gte=0"`
}

// HasherConfig tunes argon2id. Zero fields keep the library defaults.
type HasherConfig struct {
	MemoryKiB     uint32 `koanf:"memory_kib"`
	Iterations    uint32 `koanf:"iterations"`
	Threads       uint8  `koanf:"threads"`
	MaxConcurrent int64  `koanf:"max_concurrent" validate:"gte=0"`
}

// AuthPolicy returns the credential policy.
func (c *Config) AuthPolicy() auth.Policy {
	return auth.Policy{
		UsernameLengthFloor: c.Policy.UsernameLengthFloor,
		PasswordLengthFloor: c.Policy.PasswordLengthFloor,
	}
}

// Argon2Params overlays the configured hasher settings on the defaults.
func (c *Config) Argon2Params() auth.Argon2Params {
	p := auth.DefaultArgon2Params()
	if c.Hasher.MemoryKiB > 0 {
		p.Memory = c.Hasher.MemoryKiB
	}
	if c.Hasher.Iterations > 0 {
		p.Time = c.Hasher.Iterations
	}
	if c.Hasher.Threads > 0 {
		p.Threads = c.Hasher.Threads
	}
	if c.Hasher.MaxConcurrent > 0 {
		p.MaxConcurrent = c.Hasher.MaxConcurrent
	}
	return p
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	needsPostgres := c.Store.Driver == DriverPostgres || c.Session.Backend == BackendPostgres
	if needsPostgres && c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("store.driver", c.Store.Driver).
			With("session.backend", c.Session.Backend).
			Errorf("DATABASE_URL environment variable is required")
	}
	if c.Session.Backend == BackendPostgres && c.Store.Driver != DriverPostgres {
		return oops.Code("CONFIG_INVALID").
			With("store.driver", c.Store.Driver).
			Errorf("session.backend=postgres requires store.driver=postgres")
	}
	if c.Session.Backend == BackendRedis && c.Session.RedisAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.redis_addr is required for the redis backend")
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return oops.Code("CONFIG_INVALID").Errorf("store.sqlite_path is required for the sqlite driver")
	}
	if err := c.AuthPolicy().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := c.Argon2Params().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}
