package sqldb

import (
	"errors"

	"github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/satishbabariya/pgorm/sqltype"
)

// SQLite is the SQLite dialect backed by mattn/go-sqlite3.
type SQLite struct {
	sqltype.ANSI
}

// Name implements Dialect.
func (SQLite) Name() string { return "sqlite3" }

// DriverName implements Dialect.
func (SQLite) DriverName() string { return "sqlite3" }

// Normalize implements Dialect. The DSN is typically a file path or
// ":memory:".
func (SQLite) Normalize(dsn string) (string, error) {
	if dsn == "" {
		return ":memory:", nil
	}
	return dsn, nil
}

// Setup implements Dialect.
func (SQLite) Setup() []string {
	// Foreign keys are disabled by default in SQLite.
	return []string{"PRAGMA foreign_keys = ON"}
}

// VersionQuery implements Dialect.
func (SQLite) VersionQuery() string { return "SELECT sqlite_version()" }

// BackslashEscapes implements Dialect.
func (SQLite) BackslashEscapes() bool { return false }

// StatementError implements Dialect.
func (SQLite) StatementError(err error) (error, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err, false
	}
	return err, true
}
