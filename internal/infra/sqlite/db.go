// Package sqlite provides the SQLite-backed journal for battguard.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/journal.db.
// Enables WAL mode and a 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "journal.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Power source and monitor phase transitions
		`CREATE TABLE IF NOT EXISTS power_events (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			at_ms   INTEGER NOT NULL,
			kind    TEXT NOT NULL,
			on_ac   BOOLEAN NOT NULL,
			percent INTEGER NOT NULL,
			phase   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_power_events_at ON power_events(at_ms)`,

		// Confirmation sessions, one row per countdown
		`CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			event_id     TEXT NOT NULL,
			opened_at_ms INTEGER NOT NULL,
			resolved_ms  INTEGER,
			outcome      TEXT NOT NULL,
			percent      INTEGER NOT NULL,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_opened ON sessions(opened_at_ms)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
