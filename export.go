package pgassist

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ExportToCSV runs a query through the full read-only pipeline and writes
// the result set to a local CSV file. File writing happens after the query
// completes — a failed query never leaves a partial file behind.
func (s *Server) ExportToCSV(ctx context.Context, input ExportInput) *ExportOutput {
	startTime := time.Now()

	if input.Filename == "" {
		return s.exportError(fmt.Errorf("filename must be non-empty"))
	}

	output := s.ExecuteQuery(ctx, QueryInput{SQL: input.SQL})
	if output.Error != "" {
		return &ExportOutput{Error: output.Error}
	}

	if err := writeCSV(input.Filename, output.Columns, output.Results); err != nil {
		return s.exportError(err)
	}

	s.logger.Info().
		Str("filename", input.Filename).
		Dur("duration", time.Since(startTime)).
		Int("rows_exported", len(output.Results)).
		Msg("ExportToCSV executed")

	return &ExportOutput{
		Success:      true,
		Filename:     input.Filename,
		RowsExported: len(output.Results),
	}
}

func writeCSV(filename string, columns []string, rows []map[string]any) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = csvField(row[col])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return f.Close()
}

// csvField renders an already-serialized value as a CSV cell. Values are
// transport-safe scalars at this point; nested JSONB/array values are
// rendered as JSON.
func csvField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (s *Server) exportError(err error) *ExportOutput {
	s.logger.Error().Err(err).Msg("export error")
	return &ExportOutput{Error: err.Error()}
}
