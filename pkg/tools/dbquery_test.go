package tools

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthub/agenthub/pkg/config"
)

func newTestDBAdapter(t *testing.T, query string) *DBQueryAdapter {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	statements := []string{
		`CREATE TABLE orders (id TEXT, tenant_id TEXT, status TEXT, total REAL)`,
		`INSERT INTO orders VALUES ('o1', 'acme', 'shipped', 99.5)`,
		`INSERT INTO orders VALUES ('o2', 'acme', 'pending', 10)`,
		`INSERT INTO orders VALUES ('o3', 'globex', 'shipped', 44)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}

	spec := config.ToolSpec{ID: "t2", Name: "order_lookup", Kind: config.ToolDBQuery}
	adapter, err := NewDBQueryAdapterFromDB(spec, DBQueryToolConfig{Query: query}, db, "sqlite")
	if err != nil {
		t.Fatalf("NewDBQueryAdapterFromDB() error: %v", err)
	}
	return adapter
}

func TestDBQueryAdapter_TenantScopedQuery(t *testing.T) {
	adapter := newTestDBAdapter(t,
		`SELECT id, status FROM orders WHERE tenant_id = {tenant_id} AND status = {status} ORDER BY id`)

	result, err := adapter.Execute(context.Background(),
		map[string]any{"status": "shipped"}, AuthContext{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	rows, ok := result.Data.([]map[string]any)
	if !ok {
		t.Fatalf("Data type = %T", result.Data)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (globex row must be excluded)", len(rows))
	}
	if rows[0]["id"] != "o1" || rows[0]["status"] != "shipped" {
		t.Errorf("row = %v", rows[0])
	}
	if result.Metadata["row_count"] != 1 {
		t.Errorf("row_count = %v", result.Metadata["row_count"])
	}
}

func TestDBQueryAdapter_TenantBindIgnoresArgs(t *testing.T) {
	adapter := newTestDBAdapter(t,
		`SELECT id FROM orders WHERE tenant_id = {tenant_id} ORDER BY id`)

	// An attacker-supplied tenant_id argument must not widen the scope.
	result, err := adapter.Execute(context.Background(),
		map[string]any{"tenant_id": "globex"}, AuthContext{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	rows := result.Data.([]map[string]any)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want acme's 2", len(rows))
	}
	for _, row := range rows {
		if row["id"] == "o3" {
			t.Error("query returned another tenant's row")
		}
	}
}

func TestDBQueryAdapter_MissingArg(t *testing.T) {
	adapter := newTestDBAdapter(t,
		`SELECT id FROM orders WHERE tenant_id = {tenant_id} AND status = {status}`)

	_, err := adapter.Execute(context.Background(), nil, AuthContext{TenantID: "acme"})
	if err == nil {
		t.Fatal("Execute() should error on unbound parameter")
	}
	var toolErr *ToolExecutionError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T", err)
	}
}

func TestDBQueryAdapter_RejectsWrites(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	spec := config.ToolSpec{Name: "bad", Kind: config.ToolDBQuery}

	for _, query := range []string{
		"",
		"DELETE FROM orders",
		"UPDATE orders SET status = 'x'",
		"SELECT 1; DROP TABLE orders",
	} {
		if _, err := NewDBQueryAdapterFromDB(spec, DBQueryToolConfig{Query: query}, db, "sqlite"); err == nil {
			t.Errorf("query %q should be rejected", query)
		}
	}
}

func TestDBQueryAdapter_MaxRows(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE items (n INTEGER)`); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(`INSERT INTO items VALUES (?)`, i); err != nil {
			t.Fatal(err)
		}
	}

	spec := config.ToolSpec{Name: "items", Kind: config.ToolDBQuery}
	adapter, err := NewDBQueryAdapterFromDB(spec,
		DBQueryToolConfig{Query: `SELECT n FROM items`, MaxRows: 3}, db, "sqlite")
	if err != nil {
		t.Fatal(err)
	}

	result, err := adapter.Execute(context.Background(), nil, AuthContext{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if rows := result.Data.([]map[string]any); len(rows) != 3 {
		t.Errorf("got %d rows, want the 3-row cap", len(rows))
	}
}
