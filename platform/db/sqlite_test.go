package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLite_AppliesSchemaInNestedDir(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "dev.db")

	sqlDB, err := OpenSQLite(ctx, path, `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if _, err := sqlDB.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v string
	if err := sqlDB.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, "a").Scan(&v); err != nil || v != "1" {
		t.Fatalf("select: %v %q", err, v)
	}
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), " ", ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestOpenSQLite_BadSchema(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), "NOT SQL"); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestPoolHealth_NilPool(t *testing.T) {
	if err := NewPoolHealth(nil).Ping(context.Background()); err != nil {
		t.Fatalf("nil pool should report healthy: %v", err)
	}
}
