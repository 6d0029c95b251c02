package safety

import (
	"errors"
	"strings"
	"testing"
)

func TestPermittedQueries(t *testing.T) {
	t.Parallel()
	g := NewGate(Config{})

	cases := []struct {
		name string
		sql  string
	}{
		{"simple select", "SELECT 1"},
		{"select from table", "SELECT * FROM users"},
		{"lowercase", "select id, name from users where id = 1"},
		{"leading whitespace", "   \n\t SELECT * FROM users"},
		{"keyword inside identifier", "SELECT * FROM dropped_items"},
		{"keyword inside column name", "SELECT update_count FROM deleted_records"},
		{"aggregate", "SELECT COUNT(*) FROM users"},
		{"join", "SELECT u.name, o.total FROM users u JOIN orders o ON o.user_id = u.id"},
		{"with cte", "WITH recent AS (SELECT * FROM orders WHERE created_at > now() - interval '1 day') SELECT * FROM recent"},
		{"union", "SELECT id FROM users UNION SELECT id FROM archived_users"},
		{"subquery", "SELECT * FROM users WHERE id IN (SELECT user_id FROM orders)"},
		{"limit offset", "SELECT * FROM users ORDER BY id LIMIT 10 OFFSET 20"},
		{"trailing semicolon", "SELECT 1;"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := g.Check(tc.sql); err != nil {
				t.Fatalf("expected %q to be permitted, got: %v", tc.sql, err)
			}
		})
	}
}

func TestRejectedQueries(t *testing.T) {
	t.Parallel()
	g := NewGate(Config{})

	cases := []struct {
		name   string
		sql    string
		reason string // substring expected in the rejection reason
	}{
		{"delete", "DELETE FROM users", "DELETE"},
		{"delete lowercase", "delete from users where id = 1", "DELETE"},
		{"insert", "INSERT INTO users (name) VALUES ('x')", "INSERT"},
		{"update", "UPDATE users SET name = 'x' WHERE id = 1", "UPDATE"},
		{"drop", "DROP TABLE users", "DROP"},
		{"drop with whitespace and case", "  DROP TABLE users;", "DROP"},
		{"truncate", "TRUNCATE users", "TRUNCATE"},
		{"alter", "ALTER TABLE users ADD COLUMN x int", "ALTER"},
		{"merge", "MERGE INTO users u USING staging s ON u.id = s.id WHEN MATCHED THEN UPDATE SET name = s.name", "MERGE"},
		{"copy", "COPY users TO '/tmp/users.csv'", "COPY"},
		{"create table", "CREATE TABLE t (id int)", "only SELECT"},
		{"do block", "DO $$ BEGIN NULL; END $$", "only SELECT"},
		{"set", "SET search_path TO public", "only SELECT"},
		{"begin", "BEGIN", "transaction control"},
		{"multi-statement", "SELECT 1; SELECT 2", "multi-statement"},
		{"piggybacked write", "SELECT 1; DROP TABLE users", "multi-statement"},
		{"cte hiding delete", "WITH gone AS (DELETE FROM users RETURNING *) SELECT * FROM gone", "DELETE"},
		{"cte hiding insert", "WITH added AS (INSERT INTO users (name) VALUES ('x') RETURNING id) SELECT * FROM added", "INSERT"},
		{"select into", "SELECT * INTO backup FROM users", "SELECT INTO"},
		{"select for update", "SELECT * FROM users FOR UPDATE", "row locks"},
		{"unparseable", "this is not sql", "could not parse"},
		{"empty", "", "empty"},
		{"whitespace only", "   \n\t  ", "empty"},
		{"explain blocked by default", "EXPLAIN SELECT * FROM users", "EXPLAIN"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := g.Check(tc.sql)
			if err == nil {
				t.Fatalf("expected %q to be rejected", tc.sql)
			}
			var rejectErr *RejectError
			if !errors.As(err, &rejectErr) {
				t.Fatalf("expected *RejectError, got %T: %v", err, err)
			}
			if !strings.Contains(rejectErr.Reason, tc.reason) {
				t.Fatalf("expected reason containing %q, got %q", tc.reason, rejectErr.Reason)
			}
		})
	}
}

func TestAllowExplain(t *testing.T) {
	t.Parallel()
	g := NewGate(Config{AllowExplain: true})

	if err := g.Check("EXPLAIN SELECT * FROM users"); err != nil {
		t.Fatalf("expected EXPLAIN SELECT to be permitted, got: %v", err)
	}
	if err := g.Check("EXPLAIN ANALYZE SELECT 1"); err != nil {
		t.Fatalf("expected EXPLAIN ANALYZE SELECT to be permitted, got: %v", err)
	}

	// EXPLAIN over a write is still a write path (EXPLAIN ANALYZE executes it).
	if err := g.Check("EXPLAIN DELETE FROM users"); err == nil {
		t.Fatal("expected EXPLAIN DELETE to be rejected")
	}
}

func TestRejectErrorMessage(t *testing.T) {
	t.Parallel()
	g := NewGate(Config{})

	err := g.Check("DROP TABLE users")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "query rejected: ") {
		t.Fatalf("expected 'query rejected: ' prefix, got %q", err.Error())
	}
}
