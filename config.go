package pgassist

// Config is the engine configuration used by New().
type Config struct {
	Pool  PoolConfig  `json:"pool"`
	Query QueryConfig `json:"query"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connection ConnectionConfig `json:"connection"`
	Server     ServerSettings   `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
// The password is never stored in config — it comes from the environment or
// an interactive prompt.
type ConnectionConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	User    string `json:"user"`
	DBName  string `json:"dbname"`
	SSLMode string `json:"sslmode"`
}

// PoolConfig holds connection pool settings. Duration fields are Go duration
// strings (e.g. "5m", "30s").
type PoolConfig struct {
	MaxConns               int    `json:"max_conns"`
	MinConns               int    `json:"min_conns"`
	AcquireTimeout         string `json:"acquire_timeout"`
	MaxConnLifetime        string `json:"max_conn_lifetime"`
	MaxConnIdleTime        string `json:"max_conn_idle_time"`
	HealthCheckPeriod      string `json:"health_check_period"`
	StatementCacheCapacity int    `json:"statement_cache_capacity"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds int  `json:"default_timeout_seconds"`
	CatalogTimeoutSeconds int  `json:"catalog_timeout_seconds"`
	MaxSQLLength          int  `json:"max_sql_length"`
	DefaultLimit          int  `json:"default_limit"`
	MaxLimit              int  `json:"max_limit"`
	AllowExplain          bool `json:"allow_explain"`

	TimeoutRules []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a SQL pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}
