package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const memoryPath = ":memory:"

// openDatabase opens a SQLite database with the pragmas every store relies on
func openDatabase(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != memoryPath {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if needed) a SQLite store at path.
// path may be a plain file path, ":memory:", a sqlite:// URL or a file: URI.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := openDatabase(ctx, sqlitePath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLStore(ctx, db, sqliteDialect)
}

// sqlitePath strips sqlite:// prefixes so the driver receives a file path.
// "file:" URIs are passed through untouched.
// "sqlite:///rel.db" is relative, "sqlite:////abs.db" is absolute and a
// bare "sqlite://" is an in-memory database.
func sqlitePath(dsn string) string {
	path := dsn
	switch {
	case strings.HasPrefix(path, "sqlite:///"):
		path = strings.TrimPrefix(path, "sqlite:///")
	case strings.HasPrefix(path, "sqlite://"):
		path = strings.TrimPrefix(path, "sqlite://")
	case strings.HasPrefix(path, "file:"):
		// SQLite URI filename, query parameters included
		return path
	}
	if path == "" {
		return memoryPath
	}
	return path
}
