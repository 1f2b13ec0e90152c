// Package postgres is the optional durable archive for audit records: a
// connection manager plus an audit repository, adapted from the teacher's
// database manager and trades repository, repurposed from market trade
// history to this pipeline's audit domain.
package postgres

import (
	"os"
	"strconv"
	"time"
)

// Config holds database connection configuration. Every recognized option
// is a named field with an environment override, matching spec.md §6's
// archive-enable-flag pattern.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
	Enabled         bool
}

// DefaultConfig returns reasonable defaults; persistence is disabled unless
// explicitly turned on.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    30 * time.Second,
		Enabled:         false,
	}
}

// LoadConfigFromEnv starts from DefaultConfig and applies PG_* environment
// overrides, matching the teacher's applyEnvOverrides shape.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		cfg.DSN = dsn
	}
	if enabled := os.Getenv("PG_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.Enabled = val
		}
	}
	if maxOpen := os.Getenv("PG_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			cfg.MaxOpenConns = val
		}
	}
	if maxIdle := os.Getenv("PG_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			cfg.MaxIdleConns = val
		}
	}
	if maxLifetime := os.Getenv("PG_CONN_MAX_LIFETIME"); maxLifetime != "" {
		if val, err := time.ParseDuration(maxLifetime); err == nil {
			cfg.ConnMaxLifetime = val
		}
	}
	if maxIdleTime := os.Getenv("PG_CONN_MAX_IDLE_TIME"); maxIdleTime != "" {
		if val, err := time.ParseDuration(maxIdleTime); err == nil {
			cfg.ConnMaxIdleTime = val
		}
	}
	if queryTimeout := os.Getenv("PG_QUERY_TIMEOUT"); queryTimeout != "" {
		if val, err := time.ParseDuration(queryTimeout); err == nil {
			cfg.QueryTimeout = val
		}
	}

	return cfg
}
