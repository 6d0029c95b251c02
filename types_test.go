package pgassist_test

import (
	"encoding/json"
	"strings"
	"testing"

	pgassist "github.com/datavolt/pgassist"
)

func TestQueryOutputJSONShape(t *testing.T) {
	t.Parallel()

	success := &pgassist.QueryOutput{
		Success: true,
		Columns: []string{"id"},
		Results: []map[string]any{{"id": int64(1)}},
	}
	b, err := json.Marshal(success)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"success":true`) {
		t.Fatalf("expected success flag, got %s", s)
	}
	if strings.Contains(s, `"error"`) {
		t.Fatalf("success envelope must omit error, got %s", s)
	}

	failure := &pgassist.QueryOutput{Error: "query rejected: DELETE statements are not allowed"}
	b, err = json.Marshal(failure)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s = string(b)
	if !strings.Contains(s, `"success":false`) {
		t.Fatalf("failure envelope must carry success:false, got %s", s)
	}
	if !strings.Contains(s, `"error":"query rejected`) {
		t.Fatalf("expected error field, got %s", s)
	}
	if strings.Contains(s, `"results"`) {
		t.Fatalf("failure envelope must omit results, got %s", s)
	}
}

func TestExportOutputJSONShape(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(&pgassist.ExportOutput{Success: true, Filename: "out.csv", RowsExported: 0})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	// rows_exported is always present, even at zero.
	if !strings.Contains(string(b), `"rows_exported":0`) {
		t.Fatalf("expected rows_exported field, got %s", b)
	}
}

func TestTableDescriptorJSON(t *testing.T) {
	t.Parallel()

	desc := &pgassist.TableDescriptor{
		TableName: "users",
		Columns: []pgassist.ColumnDescriptor{
			{Name: "id", Type: "integer", Nullable: false},
			{Name: "email", Type: "text", Nullable: true},
		},
	}
	b, err := json.Marshal(desc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded pgassist.TableDescriptor
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.TableName != "users" || len(decoded.Columns) != 2 {
		t.Fatalf("unexpected round trip: %+v", decoded)
	}
	if decoded.Columns[1].Name != "email" || !decoded.Columns[1].Nullable {
		t.Fatalf("unexpected column: %+v", decoded.Columns[1])
	}
}
