package sqldb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/satishbabariya/pgorm/sqltype"
)

// MySQL is the MySQL dialect backed by go-sql-driver/mysql. Sessions run with
// the ANSI_QUOTES sql_mode so identifiers are double quoted as elsewhere.
type MySQL struct{}

// Name implements Dialect.
func (MySQL) Name() string { return "mysql" }

// DriverName implements Dialect.
func (MySQL) DriverName() string { return "mysql" }

// Normalize implements Dialect.
func (MySQL) Normalize(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	cfg.Params["sql_mode"] = "'ANSI_QUOTES'"
	return cfg.FormatDSN(), nil
}

// Setup implements Dialect.
func (MySQL) Setup() []string { return nil }

// VersionQuery implements Dialect.
func (MySQL) VersionQuery() string { return "SELECT VERSION()" }

// QuoteIdentifier implements Dialect.
func (MySQL) QuoteIdentifier(name string) string {
	return sqltype.ANSI{}.QuoteIdentifier(name)
}

var mysqlLiteral = strings.NewReplacer(`\`, `\\`, `'`, `''`, "\x00", `\0`)

// QuoteLiteral implements Dialect. Backslashes are escape characters in
// MySQL string literals unless NO_BACKSLASH_ESCAPES is set.
func (MySQL) QuoteLiteral(s string) string {
	return "'" + mysqlLiteral.Replace(s) + "'"
}

// BackslashEscapes implements Dialect.
func (MySQL) BackslashEscapes() bool { return true }

// StatementError implements Dialect.
func (MySQL) StatementError(err error) (error, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err, false
	}
	return err, true
}
