package sqltype

import "strings"

// ANSI quotes identifiers with double quotes and literals with single quotes,
// doubling embedded quote characters. It is the quoting used by PostgreSQL
// with standard_conforming_strings and by SQLite.
type ANSI struct{}

// QuoteIdentifier implements Escaper.
func (ANSI) QuoteIdentifier(name string) string {
	if end := strings.IndexRune(name, 0); end > -1 {
		name = name[:end]
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral implements Escaper.
func (ANSI) QuoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
