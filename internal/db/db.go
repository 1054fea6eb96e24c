// Package db mirrors the loaded dataset and the clustering runs into an
// in-memory sqlite database so they can be inspected with tailsql under
// /debug/. Nothing is written to disk.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// MemoryDSN names a private in-memory database.
const MemoryDSN = ":memory:"

// DefaultMaxClusterRuns is how many cluster runs are kept unless
// SetMaxClusterRuns says otherwise.
const DefaultMaxClusterRuns = 500

type DB struct {
	*sql.DB
	maxClusterRuns int
}

// OpenDB opens the sqlite database at path and applies the embedded
// migrations. Every connection to ":memory:" is a separate database, so
// the pool is pinned to one connection.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA temp_store = MEMORY;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	db := &DB{DB: sqlDB, maxClusterRuns: DefaultMaxClusterRuns}
	migrations, err := MigrationsFS()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrations); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemoryDB opens a fresh in-memory mirror.
func OpenMemoryDB() (*DB, error) {
	return OpenDB(MemoryDSN)
}

// SetMaxClusterRuns caps the cluster_runs log; older runs are pruned on
// insert. Values below 1 restore the default.
func (db *DB) SetMaxClusterRuns(n int) {
	if n < 1 {
		n = DefaultMaxClusterRuns
	}
	db.maxClusterRuns = n
}

// MaxClusterRuns returns the cluster_runs cap.
func (db *DB) MaxClusterRuns() int {
	return db.maxClusterRuns
}
