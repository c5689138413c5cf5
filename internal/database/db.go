// Package database persists restoration jobs in SQLite.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS restorations (
	id TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	upload_file TEXT NOT NULL,
	cropped_file TEXT NOT NULL,
	restored_file TEXT NOT NULL,
	video_file TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_restorations_created_at ON restorations(created_at DESC);
`

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens the SQLite database at path and applies the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
