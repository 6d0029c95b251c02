// Package pgassist exposes a PostgreSQL database to AI agents through the
// Model Context Protocol (MCP): named tools (list_tables, execute_query,
// export_to_csv) and templated read-only resources (schema://, data://,
// stats://).
//
// The engine is strictly read-only. Every query passes through a safety
// gate backed by PostgreSQL's actual C parser (pg_query) that permits only
// SELECT statements and fails closed on anything it cannot classify. Table
// names supplied by callers are validated against the live catalog before
// they are embedded (quoted) into generated SQL; all values travel as bind
// parameters over the pgx extended query protocol.
//
// # Library Usage
//
//	s, err := pgassist.New(ctx, connString, pgassist.Config{
//		Pool: pgassist.PoolConfig{MaxConns: 10, MinConns: 2},
//		Query: pgassist.QueryConfig{
//			DefaultTimeoutSeconds: 60,
//			CatalogTimeoutSeconds: 10,
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close(ctx)
//
//	// Use directly
//	output := s.ExecuteQuery(ctx, pgassist.QueryInput{SQL: "SELECT * FROM users LIMIT 10"})
//
//	// Or register on an MCP server
//	pgassist.RegisterMCPTools(mcpServer, s)
//	pgassist.RegisterMCPResources(mcpServer, s)
//
// Every operation returns a uniform envelope: {success, results|error, ...}.
// Failed operations carry the error message in the envelope; nothing crosses
// the transport boundary as an unstructured fault.
package pgassist
