// Package store persists posts and users in SQLite. Schema lifecycle is
// handled by golang-migrate from db/migrations (see main.go).
package store

import (
	"database/sql"
	"errors"

	"modernc.org/sqlite"
)

// SQLite constraint codes surfaced by the driver on duplicate writes.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

// DB wraps the SQL handle. The unique index on posts.slug is the only
// concurrency guard the post lifecycle needs.
type DB struct {
	db *sql.DB
}

func New(db *sql.DB) *DB {
	return &DB{db: db}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
	}
	return false
}
