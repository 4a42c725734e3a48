package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects the SQL flavour used for schema creation.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type migration struct {
	version  int
	postgres []string
	sqlite   []string
}

func (m migration) statements(d Dialect) []string {
	if d == DialectSQLite {
		return m.sqlite
	}
	return m.postgres
}

var migrations = []migration{
	{
		version: 1,
		postgres: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(254) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)`,
			`CREATE TABLE IF NOT EXISTS bookmarks (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(500) NOT NULL,
				url TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created_at ON bookmarks(user_id, created_at DESC)`,
		},
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE IF NOT EXISTS bookmarks (
				id TEXT PRIMARY KEY NOT NULL,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				url TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created_at ON bookmarks(user_id, created_at DESC)`,
		},
	},
	{
		version: 2,
		postgres: []string{
			`ALTER TABLE bookmarks ADD COLUMN IF NOT EXISTS thumbnail_url TEXT NOT NULL DEFAULT ''`,
		},
		sqlite: []string{
			`ALTER TABLE bookmarks ADD COLUMN thumbnail_url TEXT NOT NULL DEFAULT ''`,
		},
	},
}

// Migrate brings the schema up to the latest version. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, dialect, m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, dialect Dialect, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.statements(dialect) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}
