package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	pgassist "github.com/datavolt/pgassist"
)

func runServe() error {
	ctx := context.Background()

	// 1. Load environment (.env is optional — real env vars win).
	_ = godotenv.Load()
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverConfig.Server.Port <= 0 {
		panic("pgassist: SERVER_PORT must be > 0")
	}

	// 2. Resolve credentials: env first, interactive prompt as fallback.
	user := serverConfig.Connection.User
	if user == "" {
		user = promptInput("Username: ")
	}
	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = promptPassword("Password: ")
	}
	connString := buildConnString(serverConfig.Connection, user, password)

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 4. Create the engine — pool creation probes connectivity and fails
	// fast if the database is unreachable.
	engine, err := pgassist.New(ctx, connString, serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Close(ctx)

	// 5. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("pgassist", version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithHooks(hooks),
	)

	pgassist.RegisterMCPTools(mcpServer, engine)
	pgassist.RegisterMCPResources(mcpServer, engine)

	// 6. Start HTTP server with optional health check
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("pgassist: HEALTH_CHECK_PATH must be set when health check is enabled")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting pgassist server")
	return streamableServer.Start(addr)
}

// loadServerConfig builds the full server configuration from environment
// variables, applying the documented defaults.
func loadServerConfig() (*pgassist.ServerConfig, error) {
	port, err := envInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	minConns, err := envInt("POOL_MIN_SIZE", 2)
	if err != nil {
		return nil, err
	}
	maxConns, err := envInt("POOL_MAX_SIZE", 10)
	if err != nil {
		return nil, err
	}
	stmtCache, err := envInt("POOL_STATEMENT_CACHE", 100)
	if err != nil {
		return nil, err
	}
	queryTimeout, err := envInt("QUERY_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	catalogTimeout, err := envInt("CATALOG_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	maxLimit, err := envInt("QUERY_MAX_LIMIT", 1000)
	if err != nil {
		return nil, err
	}
	serverPort, err := envInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config := &pgassist.ServerConfig{
		Config: pgassist.Config{
			Pool: pgassist.PoolConfig{
				MinConns:               minConns,
				MaxConns:               maxConns,
				AcquireTimeout:         envStr("POOL_ACQUIRE_TIMEOUT", "10s"),
				MaxConnIdleTime:        envStr("POOL_MAX_CONN_IDLE_TIME", "5m"),
				MaxConnLifetime:        envStr("POOL_MAX_CONN_LIFETIME", ""),
				StatementCacheCapacity: stmtCache,
			},
			Query: pgassist.QueryConfig{
				DefaultTimeoutSeconds: queryTimeout,
				CatalogTimeoutSeconds: catalogTimeout,
				MaxLimit:              maxLimit,
				AllowExplain:          envStr("QUERY_ALLOW_EXPLAIN", "") == "true",
			},
		},
		Connection: pgassist.ConnectionConfig{
			Host:    envStr("DB_HOST", "localhost"),
			Port:    port,
			User:    envStr("DB_USER", ""),
			DBName:  envStr("DB_NAME", ""),
			SSLMode: envStr("DB_SSLMODE", ""),
		},
		Server: pgassist.ServerSettings{
			Port:               serverPort,
			HealthCheckEnabled: envStr("HEALTH_CHECK_PATH", "") != "",
			HealthCheckPath:    envStr("HEALTH_CHECK_PATH", ""),
		},
		Logging: pgassist.LoggingConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
			Output: envStr("LOG_OUTPUT", "stderr"),
		},
	}

	if config.Connection.DBName == "" {
		return nil, fmt.Errorf("DB_NAME must be set")
	}
	return config, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func buildConnString(conn pgassist.ConnectionConfig, username, password string) string {
	parts := []string{}
	if conn.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", conn.Host))
	}
	if conn.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", conn.Port))
	}
	if conn.DBName != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", conn.DBName))
	}
	if username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", username))
	}
	if password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", password))
	}
	if conn.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", conn.SSLMode))
	}
	return strings.Join(parts, " ")
}

func setupLogger(config pgassist.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
