package pgassist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrUnknownTable is returned when a table name is not present in the
// current catalog. Identifier-accepting operations check the catalog before
// embedding any name into generated SQL.
var ErrUnknownTable = errors.New("unknown table")

const listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name;
`

const tableColumnsSQL = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position;
`

// ListTables returns all base tables in the public schema, in lexical
// order. Consults the live catalog on every call — no caching.
func (s *Server) ListTables(ctx context.Context) ([]string, error) {
	startTime := time.Now()

	if err := s.acquireSlot(ctx, "ListTables"); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	queryCtx, cancel := s.catalogContext(ctx)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, listTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("ListTables query failed: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ListTables scan failed: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTables rows error: %w", err)
	}

	s.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("ListTables executed")

	return tables, nil
}

// DescribeTable returns the ordered column sequence of a table from the
// live catalog. Fails with ErrUnknownTable if the name does not exist.
func (s *Server) DescribeTable(ctx context.Context, table string) (*TableDescriptor, error) {
	startTime := time.Now()

	if err := s.acquireSlot(ctx, "DescribeTable"); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	queryCtx, cancel := s.catalogContext(ctx)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	columns, err := fetchColumns(queryCtx, conn, table)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("table", table).
		Dur("duration", time.Since(startTime)).
		Int("column_count", len(columns)).
		Msg("DescribeTable executed")

	return &TableDescriptor{TableName: table, Columns: columns}, nil
}

// TableData returns up to limit rows from the table starting at offset.
// The table name is validated against the catalog before it is embedded
// (quoted) into the generated query; limit and offset travel as bind
// parameters. Rows are ordered by the first column so that pagination over
// a stable key returns disjoint pages.
func (s *Server) TableData(ctx context.Context, table string, limit, offset int) (*TableData, error) {
	startTime := time.Now()

	limit, offset, err := s.clampPagination(limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.acquireSlot(ctx, "TableData"); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	queryCtx, cancel := s.catalogContext(ctx)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	// Catalog check doubles as identifier validation.
	if _, err := fetchColumns(queryCtx, conn, table); err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY 1 LIMIT $1 OFFSET $2", quoteIdent(table))
	rows, err := conn.Query(queryCtx, sql, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("TableData query failed: %w", err)
	}

	_, results, err := collectRows(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("table", table).
		Dur("duration", time.Since(startTime)).
		Int("rows_returned", len(results)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("TableData executed")

	return &TableData{TableName: table, SampleData: results, RowsReturned: len(results)}, nil
}

// TableStats returns the total row count and column count of a table.
func (s *Server) TableStats(ctx context.Context, table string) (*TableStats, error) {
	startTime := time.Now()

	if err := s.acquireSlot(ctx, "TableStats"); err != nil {
		return nil, err
	}
	defer s.releaseSlot()

	queryCtx, cancel := s.catalogContext(ctx)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	columns, err := fetchColumns(queryCtx, conn, table)
	if err != nil {
		return nil, err
	}

	var totalRows int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
	if err := conn.QueryRow(queryCtx, countSQL).Scan(&totalRows); err != nil {
		return nil, fmt.Errorf("TableStats count failed: %w", err)
	}

	s.logger.Info().
		Str("table", table).
		Dur("duration", time.Since(startTime)).
		Int64("total_rows", totalRows).
		Msg("TableStats executed")

	return &TableStats{TableName: table, TotalRows: totalRows, ColumnCount: len(columns)}, nil
}

// fetchColumns reads the column descriptors for a table from the live
// catalog. An empty result means the table does not exist — this is the
// membership check that closes the identifier-injection gap.
func fetchColumns(ctx context.Context, q querier, table string) ([]ColumnDescriptor, error) {
	rows, err := q.Query(ctx, tableColumnsSQL, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnDescriptor
	for rows.Next() {
		var col ColumnDescriptor
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return columns, nil
}

// querier is the subset of pgx query methods fetchColumns needs, satisfied
// by both *pgxpool.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// clampPagination bounds limit and offset: non-positive limits are
// rejected, limits above max_limit are clamped, negative offsets are
// clamped to zero.
func (s *Server) clampPagination(limit, offset int) (int, int, error) {
	if limit <= 0 {
		return 0, 0, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if limit > s.config.Query.MaxLimit {
		limit = s.config.Query.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

func (s *Server) catalogContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.config.Query.CatalogTimeoutSeconds)*time.Second)
}

// quoteIdent escapes a SQL identifier: doubles embedded double-quotes and
// wraps in double-quotes. Used only after the name has been validated
// against the catalog.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
