package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS gpt_findings (
    id                     TEXT PRIMARY KEY,
    tenant_id              TEXT NOT NULL,
    title                  TEXT NOT NULL,
    detail                 TEXT NOT NULL,
    remediation            TEXT NULL,
    location               TEXT NOT NULL,
    severity               TEXT NOT NULL,
    confidence             TEXT NOT NULL,
    background             TEXT NOT NULL,
    remediation_background TEXT NULL,
    exchange_json          TEXT NOT NULL DEFAULT '{}',
    created_at             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gpt_findings_tenant_created ON gpt_findings(tenant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_gpt_findings_location ON gpt_findings(tenant_id, location);
`,
	},
}

// Connect opens (or creates) the SQLite file at path and applies pending
// migrations. ":memory:" gives a throwaway database.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// satu koneksi: sqlite single writer, dan :memory: per-connection
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_versions (
    version    INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}
