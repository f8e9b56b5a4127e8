package sqldb

import (
	"errors"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver
)

// Postgres is the PostgreSQL dialect backed by lib/pq.
type Postgres struct{}

// Name implements Dialect.
func (Postgres) Name() string { return "postgres" }

// DriverName implements Dialect.
func (Postgres) DriverName() string { return "postgres" }

// Normalize implements Dialect. Both URLs and key=value strings are accepted
// by lib/pq as they are.
func (Postgres) Normalize(dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("postgres: empty DSN")
	}
	return dsn, nil
}

// Setup implements Dialect.
func (Postgres) Setup() []string { return nil }

// VersionQuery implements Dialect.
func (Postgres) VersionQuery() string { return "SHOW server_version" }

// QuoteIdentifier implements Dialect.
func (Postgres) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }

// QuoteLiteral implements Dialect.
func (Postgres) QuoteLiteral(s string) string { return pq.QuoteLiteral(s) }

// BackslashEscapes implements Dialect.
func (Postgres) BackslashEscapes() bool { return false }

// StatementError implements Dialect.
func (Postgres) StatementError(err error) (error, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err, false
	}
	if pqErr.Detail != "" {
		return fmt.Errorf("%w: %s", pqErr, pqErr.Detail), true
	}
	return pqErr, true
}
