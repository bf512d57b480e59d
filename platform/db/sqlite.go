package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) a SQLite database file and applies
// schema. A single connection serialises writers.
func OpenSQLite(ctx context.Context, path, schema string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	_, _ = sqlDB.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = sqlDB.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = sqlDB.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if schema != "" {
		if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply sqlite schema: %w", err)
		}
	}

	return sqlDB, nil
}
