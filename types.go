package pgassist

// QueryInput is the input for the execute_query tool.
type QueryInput struct {
	SQL string `json:"sql"`
}

// QueryOutput is the uniform envelope for execute_query. On failure Success
// is false and Error carries the reason — safety rejections, pool errors,
// Postgres errors, and serialization errors all land here; callers never see
// a raw Go error.
type QueryOutput struct {
	Success bool             `json:"success"`
	Columns []string         `json:"columns,omitempty"`
	Results []map[string]any `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ListTablesOutput is the envelope for the list_tables tool. Tables are in
// lexical order.
type ListTablesOutput struct {
	Success bool     `json:"success"`
	Tables  []string `json:"tables,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ExportInput is the input for the export_to_csv tool.
type ExportInput struct {
	SQL      string `json:"sql"`
	Filename string `json:"filename"`
}

// ExportOutput is the envelope for the export_to_csv tool.
type ExportOutput struct {
	Success      bool   `json:"success"`
	Filename     string `json:"filename,omitempty"`
	RowsExported int    `json:"rows_exported"`
	Error        string `json:"error,omitempty"`
}

// ColumnDescriptor describes a single column: name, normalized declared
// type, and nullability.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableDescriptor is the payload of the schema://tables/{table_name}
// resource. Produced on demand from the live catalog; never cached.
type TableDescriptor struct {
	TableName string             `json:"table_name"`
	Columns   []ColumnDescriptor `json:"columns"`
}

// TableData is the payload of the data://tables/{table_name} resource.
type TableData struct {
	TableName    string           `json:"table_name"`
	SampleData   []map[string]any `json:"sample_data"`
	RowsReturned int              `json:"rows_returned"`
}

// TableStats is the payload of the stats://tables/{table_name} resource.
type TableStats struct {
	TableName   string `json:"table_name"`
	TotalRows   int64  `json:"total_rows"`
	ColumnCount int    `json:"column_count"`
}
