// Package sqlite is the SQLite-backed implementation of store.Store.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/krasmussen37/ess/internal/apperr"
)

// DB wraps a sql.DB connection to the primary store.
type DB struct {
	db *sql.DB
}

func errUnsupportedSchema(version int) error {
	return apperr.NewConfigError(
		fmt.Sprintf("on-disk schema version %d is newer than the %d this binary supports", version, supportedSchemaVersion),
		nil,
	)
}

// Open creates parent directories, opens the database with WAL + foreign-key
// enforcement, and runs migrations. Use ":memory:" for an
// in-memory database (tests).
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, apperr.NewConfigError("failed to create store directory", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on&_synchronous=FULL"
	} else {
		dsn = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperr.NewConfigError("failed to open store", err)
	}
	if path == ":memory:" {
		// A shared in-memory connection pool would see each connection as a
		// distinct empty database; pin to one connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, apperr.NewConfigError("failed to ping store", err)
	}

	s := &DB{db: db}
	if _, err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}
