// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package securestore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite is a Backend storing records in a single table of an embedded
// database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dsn and initializes its
// schema.  Use ":memory:" for a private in-memory database.
func NewSQLite(dsn string) (*SQLite, error) {
	const op = "securestore.NewSQLite"
	if dsn == "" {
		return nil, fmt.Errorf("%s: dsn is empty: %w", op, ErrInvalidKey)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to open database: %w", op, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes
	// writers
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &SQLite{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			key   TEXT PRIMARY KEY,
			data  BLOB NOT NULL
		);`,
	); err != nil {
		return fmt.Errorf("failed to init 'records' table schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Read implements Backend.
func (s *SQLite) Read(key string) ([]byte, error) {
	const op = "SQLite.Read"
	if err := validKey(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM records WHERE key = ?;`, key).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%s: %q: %w", op, key, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// Write implements Backend.
func (s *SQLite) Write(key string, data []byte) error {
	const op = "SQLite.Write"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if data == nil {
		data = []byte{}
	}
	if _, err := s.db.Exec(`
		INSERT INTO records (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data;`,
		key, data,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete implements Backend.
func (s *SQLite) Delete(key string) error {
	const op = "SQLite.Delete"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.db.Exec(`DELETE FROM records WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
