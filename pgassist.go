package pgassist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/datavolt/pgassist/internal/pool"
	"github.com/datavolt/pgassist/internal/resource"
	"github.com/datavolt/pgassist/internal/safety"
	"github.com/datavolt/pgassist/internal/timeout"
)

// Server is the core engine that exposes PostgreSQL through MCP tools and
// resources. All exported methods are safe for concurrent use from multiple
// goroutines; each request borrows a private connection from the pool for
// its duration.
type Server struct {
	config     Config
	pool       *pool.Manager
	semaphore  chan struct{}
	gate       *safety.Gate
	timeoutMgr *timeout.Manager
	router     *resource.Router
	logger     zerolog.Logger
}

// New creates a new Server. connString is the PostgreSQL connection string
// (must include credentials). Panics on invalid config. Returns an error
// only for runtime failures — pool creation and the initial liveness probe.
func New(ctx context.Context, connString string, config Config, logger zerolog.Logger) (*Server, error) {
	// --- Config validation (panics on invalid config) ---

	if connString == "" {
		panic("pgassist: connString must be non-empty")
	}
	if config.Pool.MaxConns <= 0 {
		panic("pgassist: pool.max_conns must be > 0")
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("pgassist: query.default_timeout_seconds must be > 0")
	}
	if config.Query.CatalogTimeoutSeconds <= 0 {
		panic("pgassist: query.catalog_timeout_seconds must be > 0")
	}

	// Apply defaults for zero values
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = 100000
	}
	if config.Query.DefaultLimit == 0 {
		config.Query.DefaultLimit = 10
	}
	if config.Query.MaxLimit == 0 {
		config.Query.MaxLimit = 1000
	}
	if config.Query.MaxSQLLength < 0 {
		panic("pgassist: query.max_sql_length must be > 0")
	}
	if config.Query.DefaultLimit < 0 || config.Query.MaxLimit < 0 {
		panic("pgassist: query.default_limit and query.max_limit must be > 0")
	}
	if config.Query.DefaultLimit > config.Query.MaxLimit {
		panic("pgassist: query.default_limit must be <= query.max_limit")
	}
	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("pgassist: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	// --- Pool manager (explicitly constructed, dependency-injected) ---

	poolConfig := pool.Config{
		MaxConns:               config.Pool.MaxConns,
		MinConns:               config.Pool.MinConns,
		AcquireTimeout:         parsePoolDuration("acquire_timeout", config.Pool.AcquireTimeout),
		MaxConnLifetime:        parsePoolDuration("max_conn_lifetime", config.Pool.MaxConnLifetime),
		MaxConnIdleTime:        parsePoolDuration("max_conn_idle_time", config.Pool.MaxConnIdleTime),
		HealthCheckPeriod:      parsePoolDuration("health_check_period", config.Pool.HealthCheckPeriod),
		StatementCacheCapacity: config.Pool.StatementCacheCapacity,
	}
	mgr := pool.NewManager(connString, poolConfig, logger)
	if err := mgr.Init(ctx); err != nil {
		return nil, err
	}

	// --- Internal components ---

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}

	s := &Server{
		config:    config,
		pool:      mgr,
		semaphore: make(chan struct{}, config.Pool.MaxConns),
		gate:      safety.NewGate(safety.Config{AllowExplain: config.Query.AllowExplain}),
		timeoutMgr: timeout.NewManager(timeout.Config{
			DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
			Rules:          timeoutRules,
		}),
		logger: logger,
	}
	s.router = s.newRouter()
	return s, nil
}

// Ping verifies database connectivity.
func (s *Server) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts the connection pool down. Idempotent. Accepts context for API
// forward-compatibility — pgxpool does not support context-based shutdown.
func (s *Server) Close(ctx context.Context) {
	s.pool.Close()
}

// acquireSlot bounds concurrent database work to the pool size. Respects
// context cancellation to prevent deadlock while waiting.
func (s *Server) acquireSlot(ctx context.Context, op string) error {
	select {
	case s.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting: %w", op, cap(s.semaphore), ctx.Err())
	}
}

func (s *Server) releaseSlot() {
	<-s.semaphore
}

func parsePoolDuration(name, value string) time.Duration {
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("pgassist: invalid pool.%s %q: %v", name, value, err))
	}
	return d
}
