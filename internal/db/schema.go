// Package db persists historical snapshots of the grub configuration in a
// local SQLite database.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migration/*.sql
var migrationFiles embed.FS

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sdb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	return sdb, nil
}

// InitSchema applies the embedded schema. All statements are idempotent so
// this runs unconditionally at startup.
func InitSchema(ctx context.Context, sdb *sql.DB) error {
	schema, err := migrationFiles.ReadFile("migration/001_initial.sql")
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := sdb.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
