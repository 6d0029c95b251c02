package pgassist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/datavolt/pgassist/internal/args"
)

// Per-operation argument schemas, validated before any database access.
var (
	listTablesArgs = args.Spec{}

	executeQueryArgs = args.Spec{Fields: []args.Field{
		{Name: "sql", Kind: args.String, Required: true},
	}}

	exportToCSVArgs = args.Spec{Fields: []args.Field{
		{Name: "sql", Kind: args.String, Required: true},
		{Name: "filename", Kind: args.String, Required: true},
	}}
)

// RegisterMCPTools registers list_tables, execute_query, and export_to_csv
// as MCP tools on the given MCP server. Every outcome — success or failure —
// is a JSON envelope; tool handlers never surface a raw error to the
// transport.
func RegisterMCPTools(mcpServer *server.MCPServer, s *Server) {
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables in the public schema of the connected PostgreSQL database."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listTablesTool, s.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := listTablesArgs.Validate(req.GetArguments()); err != nil {
			return envelopeResult(&ListTablesOutput{Error: err.Error()})
		}
		tables, err := s.ListTables(ctx)
		if err != nil {
			return envelopeResult(&ListTablesOutput{Error: err.Error()})
		}
		return envelopeResult(&ListTablesOutput{Success: true, Tables: tables})
	}))

	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Run a read-only SQL SELECT on the connected PostgreSQL database. Returns results as JSON."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL query to execute (SELECT only)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(executeQueryTool, s.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		validated, err := executeQueryArgs.Validate(req.GetArguments())
		if err != nil {
			return envelopeResult(&QueryOutput{Error: err.Error()})
		}
		return envelopeResult(s.ExecuteQuery(ctx, QueryInput{SQL: validated["sql"].(string)}))
	}))

	exportTool := mcp.NewTool("export_to_csv",
		mcp.WithDescription("Execute a SELECT query and dump the result to a local CSV file."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL query to execute (SELECT only)"),
		),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("Path of the CSV file to write"),
		),
	)

	mcpServer.AddTool(exportTool, s.loggedToolHandler("export_to_csv", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		validated, err := exportToCSVArgs.Validate(req.GetArguments())
		if err != nil {
			return envelopeResult(&ExportOutput{Error: err.Error()})
		}
		return envelopeResult(s.ExportToCSV(ctx, ExportInput{
			SQL:      validated["sql"].(string),
			Filename: validated["filename"].(string),
		}))
	}))
}

// RegisterMCPResources registers the templated read-only resources on the
// given MCP server. Reads are routed through the engine's resource router,
// which binds path and query parameters.
func RegisterMCPResources(mcpServer *server.MCPServer, s *Server) {
	templates := []struct {
		uri         string
		name        string
		description string
	}{
		{"schema://tables/{table_name}", "Table Schema", "Column names, types, and nullability of a table."},
		{"data://tables/{table_name}{?limit,offset}", "Table Data", "Sample rows from a table with limit/offset pagination."},
		{"stats://tables/{table_name}", "Table Stats", "Total row count and column count of a table."},
	}

	for _, t := range templates {
		template := mcp.NewResourceTemplate(t.uri, t.name,
			mcp.WithTemplateDescription(t.description),
			mcp.WithTemplateMIMEType("application/json"),
		)
		mcpServer.AddResourceTemplate(template, s.loggedResourceHandler(t.name, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			payload, err := s.ReadResource(ctx, req.Params.URI)
			if err != nil {
				return nil, err
			}
			jsonBytes, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     string(jsonBytes),
				},
			}, nil
		}))
	}
}

// envelopeResult marshals an envelope into a text tool result.
func envelopeResult(envelope any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(envelope)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// loggedToolHandler wraps a tool handler to log each call with a request id
// and request/response sizes.
func (s *Server) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()
		result, err := handler(ctx, req)
		s.logger.Info().
			Str("tool", tool).
			Str("request_id", uuid.NewString()).
			Dur("duration", time.Since(startTime)).
			Int("request_bytes", requestLength(req)).
			Int("response_bytes", resultLength(result)).
			Msg("tool call")
		return result, err
	}
}

// loggedResourceHandler wraps a resource read handler the same way.
func (s *Server) loggedResourceHandler(name string, handler server.ResourceTemplateHandlerFunc) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		startTime := time.Now()
		contents, err := handler(ctx, req)
		logEvent := s.logger.Info()
		if err != nil {
			logEvent = s.logger.Error().Err(err)
		}
		logEvent.
			Str("resource", name).
			Str("uri", req.Params.URI).
			Str("request_id", uuid.NewString()).
			Dur("duration", time.Since(startTime)).
			Msg("resource read")
		return contents, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	arguments := req.GetArguments()
	if len(arguments) == 0 {
		return 0
	}
	b, err := json.Marshal(arguments)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
