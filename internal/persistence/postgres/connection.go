package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Manager owns the database connection pool and the repositories built on
// top of it. Disabled by default: callers that never set PG_ENABLED get a
// Manager whose repositories are nil and whose Health always reports
// disabled rather than unhealthy.
type Manager struct {
	db      *sqlx.DB
	cfg     Config
	Audit   *AuditArchiveRepo
	enabled bool
}

// NewManager opens the pool (if enabled), configures it, and pings once to
// fail fast on a bad DSN.
func NewManager(cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return &Manager{cfg: cfg}, nil
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Manager{
		db:      db,
		cfg:     cfg,
		Audit:   NewAuditArchiveRepo(db, cfg.QueryTimeout),
		enabled: true,
	}, nil
}

// IsEnabled reports whether the manager holds a live connection.
func (m *Manager) IsEnabled() bool { return m.enabled }

// Close closes the underlying pool, if any.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// HealthStatus is a snapshot of connection pool health for the ops surface.
type HealthStatus struct {
	Enabled        bool
	Healthy        bool
	Error          string
	OpenConns      int
	InUseConns     int
	IdleConns      int
	ResponseTimeMs int64
}

// Health pings the database and reports pool statistics.
func (m *Manager) Health(ctx context.Context) HealthStatus {
	if !m.enabled {
		return HealthStatus{Enabled: false, Healthy: true}
	}

	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	defer cancel()

	status := HealthStatus{Enabled: true, Healthy: true}
	if err := m.db.PingContext(pingCtx); err != nil {
		status.Healthy = false
		status.Error = err.Error()
	}

	stats := m.db.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	status.IdleConns = stats.Idle
	status.ResponseTimeMs = time.Since(start).Milliseconds()

	return status
}
