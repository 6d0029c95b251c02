// Package pool owns the lifecycle of the bounded connection pool. All other
// components borrow connections through Manager.Acquire and must release
// them on every exit path (defer conn.Release()).
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var (
	// ErrConnectivity indicates the database is unreachable or the pool is
	// not usable. Surfaced, never retried automatically — retry policy
	// belongs to the caller.
	ErrConnectivity = errors.New("database unreachable")

	// ErrExhausted indicates no connection became free within the
	// configured acquire timeout.
	ErrExhausted = errors.New("connection pool exhausted")
)

// Config holds pool settings. MaxConns must be > 0; everything else is
// optional and falls back to pgxpool defaults when zero.
type Config struct {
	MinConns               int
	MaxConns               int
	AcquireTimeout         time.Duration
	MaxConnLifetime        time.Duration
	MaxConnIdleTime        time.Duration
	HealthCheckPeriod      time.Duration
	StatementCacheCapacity int
}

// Manager wraps pgxpool.Pool with an explicit, idempotent lifecycle:
// created once per process, closed exactly once at shutdown. Safe for
// concurrent use.
type Manager struct {
	connString string
	config     Config
	logger     zerolog.Logger

	mu     sync.Mutex
	pool   *pgxpool.Pool
	closed bool
}

// NewManager constructs a Manager without performing any I/O.
// Panics on invalid config.
func NewManager(connString string, config Config, logger zerolog.Logger) *Manager {
	if connString == "" {
		panic("pool: connString must be non-empty")
	}
	if config.MaxConns <= 0 {
		panic("pool: max_conns must be > 0")
	}
	if config.MinConns < 0 || config.MinConns > config.MaxConns {
		panic("pool: min_conns must be in [0, max_conns]")
	}
	return &Manager{connString: connString, config: config, logger: logger}
}

// Init creates the underlying pgxpool and runs a liveness probe so an
// unreachable database fails fast here rather than on first use.
// Idempotent: a second call on an initialized manager is a no-op and does
// not open a second set of connections.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: pool has been shut down", ErrConnectivity)
	}
	if m.pool != nil {
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(m.connString)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(m.config.MaxConns)
	poolConfig.MinConns = int32(m.config.MinConns)
	if m.config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = m.config.MaxConnLifetime
	}
	if m.config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = m.config.MaxConnIdleTime
	}
	if m.config.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = m.config.HealthCheckPeriod
	}
	if m.config.StatementCacheCapacity > 0 {
		poolConfig.ConnConfig.StatementCacheCapacity = m.config.StatementCacheCapacity
	}
	// Extended query protocol with explicit parameters — values are never
	// interpolated into SQL text.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("%w: failed to create connection pool: %v", ErrConnectivity, err)
	}

	var version string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		pool.Close()
		return fmt.Errorf("%w: liveness probe failed: %v", ErrConnectivity, err)
	}

	m.logger.Info().
		Int("max_conns", m.config.MaxConns).
		Int("min_conns", m.config.MinConns).
		Str("server_version", version).
		Msg("connection pool initialized")

	m.pool = pool
	return nil
}

// Acquire checks out a connection, waiting at most the configured acquire
// timeout for one to become free. The returned connection is exclusively
// owned by the caller until Release.
func (m *Manager) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()
	if pool == nil {
		return nil, fmt.Errorf("%w: pool is not initialized", ErrConnectivity)
	}

	acquireCtx := ctx
	if m.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.config.AcquireTimeout)
		defer cancel()
	}

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("connection acquire cancelled: %w", ctx.Err())
		}
		if acquireCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: no connection became free within %s", ErrExhausted, m.config.AcquireTimeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return conn, nil
}

// Ping verifies database connectivity on a pooled connection.
func (m *Manager) Ping(ctx context.Context) error {
	conn, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping failed: %v", ErrConnectivity, err)
	}
	return nil
}

// Close closes every pooled connection. Idempotent: safe to call when
// already shut down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool != nil {
		m.pool.Close()
		m.pool = nil
		m.logger.Info().Msg("connection pool closed")
	}
	m.closed = true
}
