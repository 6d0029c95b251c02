package pgassist_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	pgassist "github.com/datavolt/pgassist"
)

// acquireTestDB returns the connection string of a disposable test database,
// or skips the test when none is configured. Tests create their own uniquely
// named tables and drop them on cleanup, so a single shared database works.
func acquireTestDB(t *testing.T) string {
	t.Helper()
	connStr := os.Getenv("PGASSIST_TEST_CONNSTRING")
	if connStr == "" {
		t.Skip("PGASSIST_TEST_CONNSTRING not set; skipping database-backed test")
	}
	return connStr
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig() pgassist.Config {
	return pgassist.Config{
		Pool: pgassist.PoolConfig{MaxConns: 5},
		Query: pgassist.QueryConfig{
			DefaultTimeoutSeconds: 30,
			CatalogTimeoutSeconds: 10,
			MaxSQLLength:          100000,
			DefaultLimit:          10,
			MaxLimit:              1000,
		},
	}
}

func newTestInstance(t *testing.T, config pgassist.Config) (*pgassist.Server, string) {
	t.Helper()
	connStr := acquireTestDB(t)
	ctx := context.Background()
	s, err := pgassist.New(ctx, connStr, config, testLogger())
	if err != nil {
		t.Fatalf("Failed to create Server: %v", err)
	}
	t.Cleanup(func() { s.Close(ctx) })
	return s, connStr
}

// execSQL runs arbitrary SQL (including DDL/DML) over a direct connection.
// The engine itself only accepts SELECT, so test fixtures go through here.
func execSQL(t *testing.T, connStr string, sql string, args ...any) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect for fixture setup: %v", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		t.Fatalf("fixture SQL failed: %v\n%s", err, sql)
	}
}

// queryOne runs a single-value SELECT over a direct connection and scans the
// result into dest. Used to verify table state independently of the engine.
func queryOne(t *testing.T, connStr string, sql string, dest any) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect for verification: %v", err)
	}
	defer conn.Close(ctx)
	if err := conn.QueryRow(ctx, sql).Scan(dest); err != nil {
		t.Fatalf("verification query failed: %v\n%s", err, sql)
	}
}

var tableSeq atomic.Int64

// uniqueTable returns a table name unique to this test run so parallel tests
// sharing one database never collide. Registers a drop on cleanup.
func uniqueTable(t *testing.T, connStr, prefix string) string {
	t.Helper()
	name := fmt.Sprintf("%s_%s_%d", prefix, sanitizeTestName(t.Name()), tableSeq.Add(1))
	t.Cleanup(func() {
		ctx := context.Background()
		conn, err := pgx.Connect(ctx, connStr)
		if err != nil {
			return
		}
		defer conn.Close(ctx)
		_, _ = conn.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name))
	})
	return name
}

func sanitizeTestName(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	s := b.String()
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
