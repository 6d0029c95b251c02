package pgassist_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	pgassist "github.com/datavolt/pgassist"
)

func TestListTablesLexicalOrder(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())
	a := uniqueTable(t, connStr, "cat_a")
	b := uniqueTable(t, connStr, "cat_b")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int)`, a))
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int)`, b))

	tables, err := s.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}

	seen := map[string]bool{}
	for _, name := range tables {
		seen[name] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("expected %s and %s in table list, got %v", a, b, tables)
	}
	if !sort.StringsAreSorted(tables) {
		t.Fatalf("expected lexically sorted table list, got %v", tables)
	}
}

func TestListTablesSeesNewTables(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())

	before, err := s.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}

	// No caching: a table created after the first call shows up on the next.
	table := uniqueTable(t, connStr, "cat_fresh")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int)`, table))

	after, err := s.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d tables after create, got %d", len(before)+1, len(after))
	}
}

func TestDescribeTable(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())
	table := uniqueTable(t, connStr, "cat")
	execSQL(t, connStr, fmt.Sprintf(
		`CREATE TABLE %q (id serial PRIMARY KEY, name text NOT NULL, email text)`, table))

	desc, err := s.DescribeTable(context.Background(), table)
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if desc.TableName != table {
		t.Fatalf("expected table name %q, got %q", table, desc.TableName)
	}
	if len(desc.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(desc.Columns))
	}
	// Columns come back in declaration order.
	if desc.Columns[0].Name != "id" || desc.Columns[1].Name != "name" || desc.Columns[2].Name != "email" {
		t.Fatalf("unexpected column order: %v", desc.Columns)
	}
	if desc.Columns[1].Nullable {
		t.Fatal("expected name to be NOT NULL")
	}
	if !desc.Columns[2].Nullable {
		t.Fatal("expected email to be nullable")
	}
	if desc.Columns[1].Type != "text" {
		t.Fatalf("expected type text, got %q", desc.Columns[1].Type)
	}
}

func TestDescribeTableUnknown(t *testing.T) {
	t.Parallel()
	s, _ := newTestInstance(t, defaultConfig())

	_, err := s.DescribeTable(context.Background(), "no_such_table_here")
	if !errors.Is(err, pgassist.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestTableDataPagination(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())
	table := uniqueTable(t, connStr, "cat")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int PRIMARY KEY)`, table))
	execSQL(t, connStr, fmt.Sprintf(`INSERT INTO %q SELECT generate_series(1, 30)`, table))
	ctx := context.Background()

	page1, err := s.TableData(ctx, table, 10, 0)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	page2, err := s.TableData(ctx, table, 10, 10)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	combined, err := s.TableData(ctx, table, 20, 0)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}

	if page1.RowsReturned != 10 || page2.RowsReturned != 10 || combined.RowsReturned != 20 {
		t.Fatalf("expected 10/10/20 rows, got %d/%d/%d",
			page1.RowsReturned, page2.RowsReturned, combined.RowsReturned)
	}

	// Consecutive pages over a stable key are disjoint and stitch together.
	ids := func(data *pgassist.TableData) []int64 {
		out := make([]int64, 0, len(data.SampleData))
		for _, row := range data.SampleData {
			out = append(out, int64(row["id"].(int32)))
		}
		return out
	}
	seen := map[int64]bool{}
	for _, id := range ids(page1) {
		seen[id] = true
	}
	for _, id := range ids(page2) {
		if seen[id] {
			t.Fatalf("row %d appears in both pages", id)
		}
		seen[id] = true
	}
	for _, id := range ids(combined) {
		if !seen[id] {
			t.Fatalf("combined page contains row %d missing from the two halves", id)
		}
	}
}

func TestTableDataBeyondEnd(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())
	table := uniqueTable(t, connStr, "cat")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int PRIMARY KEY)`, table))
	execSQL(t, connStr, fmt.Sprintf(`INSERT INTO %q SELECT generate_series(1, 5)`, table))

	data, err := s.TableData(context.Background(), table, 10, 100)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if data.RowsReturned != 0 || len(data.SampleData) != 0 {
		t.Fatalf("expected empty page beyond end, got %d rows", data.RowsReturned)
	}
}

func TestTableDataClampsLimit(t *testing.T) {
	t.Parallel()
	config := defaultConfig()
	config.Query.MaxLimit = 5
	config.Query.DefaultLimit = 5
	s, connStr := newTestInstance(t, config)
	table := uniqueTable(t, connStr, "cat")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int PRIMARY KEY)`, table))
	execSQL(t, connStr, fmt.Sprintf(`INSERT INTO %q SELECT generate_series(1, 20)`, table))

	data, err := s.TableData(context.Background(), table, 100, 0)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if data.RowsReturned != 5 {
		t.Fatalf("expected limit clamped to 5, got %d rows", data.RowsReturned)
	}
}

func TestTableDataRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())
	table := uniqueTable(t, connStr, "cat")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int PRIMARY KEY)`, table))

	for _, limit := range []int{0, -1} {
		if _, err := s.TableData(context.Background(), table, limit, 0); err == nil {
			t.Fatalf("expected error for limit %d", limit)
		}
	}
}

func TestTableDataUnknownTable(t *testing.T) {
	t.Parallel()
	s, _ := newTestInstance(t, defaultConfig())

	_, err := s.TableData(context.Background(), "no_such_table_here", 10, 0)
	if !errors.Is(err, pgassist.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}

	// A hostile identifier never reaches generated SQL either.
	_, err = s.TableData(context.Background(), `x"; DROP TABLE y; --`, 10, 0)
	if !errors.Is(err, pgassist.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable for hostile name, got %v", err)
	}
}

func TestTableStats(t *testing.T) {
	t.Parallel()
	s, connStr := newTestInstance(t, defaultConfig())
	table := uniqueTable(t, connStr, "cat")
	execSQL(t, connStr, fmt.Sprintf(`CREATE TABLE %q (id int PRIMARY KEY, name text, email text)`, table))
	execSQL(t, connStr, fmt.Sprintf(`INSERT INTO %q (id) SELECT generate_series(1, 12)`, table))
	ctx := context.Background()

	stats, err := s.TableStats(ctx, table)
	if err != nil {
		t.Fatalf("TableStats failed: %v", err)
	}
	if stats.TotalRows != 12 {
		t.Fatalf("expected 12 rows, got %d", stats.TotalRows)
	}

	desc, err := s.DescribeTable(ctx, table)
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if stats.ColumnCount != len(desc.Columns) {
		t.Fatalf("stats column count %d disagrees with schema %d", stats.ColumnCount, len(desc.Columns))
	}
}

func TestTableStatsUnknownTable(t *testing.T) {
	t.Parallel()
	s, _ := newTestInstance(t, defaultConfig())

	_, err := s.TableStats(context.Background(), "no_such_table_here")
	if !errors.Is(err, pgassist.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}
