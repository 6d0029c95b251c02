// Package safety classifies SQL text as permitted or rejected before any
// execution. It is a defense-in-depth filter: queries are parsed with
// PostgreSQL's actual C parser (pg_query), and anything that is not provably
// a read-only SELECT is rejected. Parse failures, empty input, and
// multi-statement input all fail closed.
package safety

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// RejectError is returned when the gate denies a query. The reason is always
// surfaced to the caller, never silently dropped.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "query rejected: " + e.Reason
}

// Config controls gate behavior.
type Config struct {
	// AllowExplain permits EXPLAIN over an otherwise-permitted statement.
	AllowExplain bool
}

// Gate validates SQL statements. Safe for concurrent use.
type Gate struct {
	config Config
}

// NewGate creates a new Gate with the given config.
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Check parses the SQL and walks the AST. Returns nil if the statement is a
// permitted read, *RejectError otherwise. The policy is strict: only a
// leading SELECT (or EXPLAIN over one, when enabled) passes — deny-listing
// keywords alone would let unknown statement kinds through.
func (g *Gate) Check(sql string) error {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return &RejectError{Reason: fmt.Sprintf("could not parse query: %v", err)}
	}
	if len(result.Stmts) == 0 {
		return &RejectError{Reason: "empty query"}
	}
	if len(result.Stmts) > 1 {
		return &RejectError{Reason: fmt.Sprintf("multi-statement queries are not allowed: found %d statements", len(result.Stmts))}
	}
	return g.checkNode(result.Stmts[0].Stmt)
}

func (g *Gate) checkNode(node *pg_query.Node) error {
	if node == nil {
		return &RejectError{Reason: "empty statement"}
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return g.checkSelect(n.SelectStmt)

	case *pg_query.Node_ExplainStmt:
		if !g.config.AllowExplain {
			return &RejectError{Reason: "EXPLAIN is not allowed"}
		}
		if n.ExplainStmt.Query == nil {
			return &RejectError{Reason: "EXPLAIN without a statement"}
		}
		return g.checkNode(n.ExplainStmt.Query)

	// Named rejections for the common write statements so the reason is
	// immediately recognizable to the caller.
	case *pg_query.Node_InsertStmt:
		return &RejectError{Reason: "INSERT statements are not allowed: this server is read-only"}
	case *pg_query.Node_UpdateStmt:
		return &RejectError{Reason: "UPDATE statements are not allowed: this server is read-only"}
	case *pg_query.Node_DeleteStmt:
		return &RejectError{Reason: "DELETE statements are not allowed: this server is read-only"}
	case *pg_query.Node_MergeStmt:
		return &RejectError{Reason: "MERGE statements are not allowed: this server is read-only"}
	case *pg_query.Node_DropStmt, *pg_query.Node_DropdbStmt:
		return &RejectError{Reason: "DROP statements are not allowed: this server is read-only"}
	case *pg_query.Node_TruncateStmt:
		return &RejectError{Reason: "TRUNCATE statements are not allowed: this server is read-only"}
	case *pg_query.Node_AlterTableStmt, *pg_query.Node_AlterSystemStmt:
		return &RejectError{Reason: "ALTER statements are not allowed: this server is read-only"}
	case *pg_query.Node_CopyStmt:
		return &RejectError{Reason: "COPY statements are not allowed: this server is read-only"}
	case *pg_query.Node_TransactionStmt:
		return &RejectError{Reason: "transaction control statements are not allowed: each query runs in its own managed request"}

	default:
		// Fail closed: anything that is not provably a SELECT is rejected,
		// including DDL, DO blocks, SET, and statement kinds added in future
		// PostgreSQL versions.
		return &RejectError{Reason: fmt.Sprintf("only SELECT statements are allowed (got %s)", statementKind(node))}
	}
}

// checkSelect validates a SelectStmt, including its CTEs, set-operation arms,
// and locking clauses. SELECT INTO and FOR UPDATE/SHARE are writes in
// disguise and are rejected.
func (g *Gate) checkSelect(sel *pg_query.SelectStmt) error {
	if sel.IntoClause != nil {
		return &RejectError{Reason: "SELECT INTO creates a table and is not allowed"}
	}
	if len(sel.LockingClause) > 0 {
		return &RejectError{Reason: "SELECT ... FOR UPDATE/SHARE takes row locks and is not allowed"}
	}
	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			cteNode, ok := cte.Node.(*pg_query.Node_CommonTableExpr)
			if !ok {
				return &RejectError{Reason: "could not classify WITH clause entry"}
			}
			if err := g.checkNode(cteNode.CommonTableExpr.Ctequery); err != nil {
				return err
			}
		}
	}
	// UNION / INTERSECT / EXCEPT arms.
	if sel.Larg != nil {
		if err := g.checkSelect(sel.Larg); err != nil {
			return err
		}
	}
	if sel.Rarg != nil {
		if err := g.checkSelect(sel.Rarg); err != nil {
			return err
		}
	}
	return nil
}

// statementKind returns a short human-readable name for an AST node type,
// e.g. "CreateStmt" instead of the full protobuf wrapper type.
func statementKind(node *pg_query.Node) string {
	if node == nil || node.Node == nil {
		return "unknown statement"
	}
	name := fmt.Sprintf("%T", node.Node)
	// Trim "*pg_query.Node_" prefix.
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '_' || name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
