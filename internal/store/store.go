package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaMigrations upgrades databases created by older builds. Entry i moves
// user_version from i to i+1; fresh databases get the same objects from
// schema.sql and run every step as a no-op.
var schemaMigrations = []func(*sql.Tx) error{
	addLedgerIndex,
}

// pragmas applied to every connection. The pool holds a single connection
// so they stay in effect for the life of the store.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store keeps the foreign asset registry, the materialized reserve records
// and the migration ledger in one SQLite database. It satisfies
// migration.Registry, migration.ReserveStore and migration.Ledger.
//
// Writes go through a single connection, so callers may share a Store but
// must not run two migrations against it at once.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and brings its schema up to
// date. ":memory:" opens a private in-memory database. Opening an existing
// database is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for v := version; v < len(schemaMigrations); v++ {
		if err := migrateStep(db, v); err != nil {
			return err
		}
	}
	return nil
}

// migrateStep runs one schema migration and bumps user_version in the same
// transaction.
func migrateStep(db *sql.DB, from int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", from+1, err)
	}
	defer tx.Rollback()

	if err := schemaMigrations[from](tx); err != nil {
		return fmt.Errorf("migrate to v%d: %w", from+1, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", from+1, err)
	}
	return tx.Commit()
}

// addLedgerIndex backs LastRun's newest-run lookup.
func addLedgerIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_migration_runs_latest
		ON migration_runs(migration_id, seq)
	`)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
