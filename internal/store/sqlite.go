package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/webwright/webwright/internal/health"
)

// DB wraps *sql.DB for the webwright collection. Schema is owned by the app.
type DB struct {
	*sql.DB
	tracker health.Tracker
}

// Open opens the SQLite database at path and applies the schema. Creates the
// file and its directory if missing. ":memory:" is accepted for tests.
func Open(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: a :memory: database is per-connection and writes are serialised anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	// Columns added after the first release.
	var count int
	for _, col := range []struct{ table, name, def string }{
		{"log_entries", "embedder", "TEXT NOT NULL DEFAULT ''"},
	} {
		q := fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name=?", col.table)
		if err := db.QueryRowContext(ctx, q, col.name).Scan(&count); err == nil && count == 0 {
			if _, err := db.ExecContext(ctx, "ALTER TABLE "+col.table+" ADD COLUMN "+col.name+" "+col.def); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrating schema (%s.%s): %w", col.table, col.name, err)
			}
		}
	}

	return &DB{DB: db}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.DB.Close()
}
