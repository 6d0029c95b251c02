package pgassist

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/datavolt/pgassist/internal/serialize"
)

// ExecuteQuery runs the full read-only query pipeline: safety gate, timeout
// resolution, scoped connection acquisition, execution, and serialization.
// All errors are folded into the returned envelope — callers only check
// output.Error, never a Go error.
func (s *Server) ExecuteQuery(ctx context.Context, input QueryInput) *QueryOutput {
	startTime := time.Now()
	sql := input.SQL

	if err := s.acquireSlot(ctx, "ExecuteQuery"); err != nil {
		return s.queryError(err)
	}
	defer s.releaseSlot()

	// Length check before any parsing.
	if len(sql) > s.config.Query.MaxSQLLength {
		return s.queryErrorf("SQL query too long: %d bytes exceeds maximum of %d bytes", len(sql), s.config.Query.MaxSQLLength)
	}

	// Safety gate: reject anything that is not provably a read.
	if err := s.gate.Check(sql); err != nil {
		return s.queryError(err)
	}

	// Statement timeout: the query is aborted server-side when the context
	// expires, not left running detached.
	timeout, timeoutRule := s.timeoutMgr.ForQuery(sql)
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return s.queryError(err)
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, sql)
	if err != nil {
		return s.queryError(err)
	}

	columns, results, err := collectRows(rows)
	if err != nil {
		return s.queryError(err)
	}

	logEvent := s.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(results))
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	logEvent.Msg("query executed")

	return &QueryOutput{Success: true, Columns: columns, Results: results}
}

// collectRows reads all rows and serializes every value to a transport-safe
// form. The returned rows all share the same column set in the same order.
func collectRows(rows pgx.Rows) ([]string, []map[string]any, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		row, err := serialize.Row(columns, values)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, results, nil
}

// queryError converts any pipeline error into an envelope with Error set.
func (s *Server) queryError(err error) *QueryOutput {
	s.logger.Error().Err(err).Msg("query error")
	return &QueryOutput{Error: err.Error()}
}

func (s *Server) queryErrorf(format string, args ...any) *QueryOutput {
	return s.queryError(fmt.Errorf(format, args...))
}

// truncateForLog truncates a string for log output to avoid oversized log
// entries, keeping the cut on a rune boundary.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
