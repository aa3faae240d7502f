// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage driver names accepted by BOOKING_STORAGE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the booking service configuration.
type Config struct {
	// HTTPAddr is the listen address of the HTTP API.
	HTTPAddr string `env:"BOOKING_HTTP_ADDR" envDefault:":8080"`

	// StorageDriver selects the persistence backend.
	StorageDriver string `env:"BOOKING_STORAGE_DRIVER" envDefault:"sqlite"`

	// SQLiteDSN is the SQLite database file path.
	SQLiteDSN string `env:"BOOKING_SQLITE_DSN" envDefault:"booking.db"`

	// PostgresDSN is the PostgreSQL connection string, required when the
	// postgres driver is selected.
	PostgresDSN string `env:"BOOKING_POSTGRES_DSN"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `env:"BOOKING_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// SQLiteBusyTimeout sets how long SQLite waits on database locks.
	SQLiteBusyTimeout time.Duration `env:"BOOKING_SQLITE_BUSY_TIMEOUT" envDefault:"5s"`
}

// Load parses and validates the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("config: BOOKING_SQLITE_DSN is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: BOOKING_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q (expected %q or %q)", c.StorageDriver, DriverSQLite, DriverPostgres)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: BOOKING_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
