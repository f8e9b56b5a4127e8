package sqldb

import (
	"fmt"
	"sort"
)

// Dialect adapts one database/sql driver.
type Dialect interface {
	// Name returns the name the dialect is registered under.
	Name() string

	// DriverName returns the database/sql driver name.
	DriverName() string

	// Normalize rewrites a user supplied DSN into the form the driver needs.
	Normalize(dsn string) (string, error)

	// Setup returns the statements run once after connecting.
	Setup() []string

	// VersionQuery returns a query selecting the server version.
	VersionQuery() string

	// QuoteIdentifier returns name quoted as an identifier.
	QuoteIdentifier(name string) string

	// QuoteLiteral returns s quoted as a string literal.
	QuoteLiteral(s string) string

	// BackslashEscapes reports whether a backslash escapes the next
	// character in string literals.
	BackslashEscapes() bool

	// StatementError reports whether err was raised by the database for one
	// statement, as opposed to a failure of the connection itself, and
	// returns it with the driver's detail attached.
	StatementError(err error) (error, bool)
}

var dialects = map[string]Dialect{}

func register(d Dialect, aliases ...string) {
	dialects[d.Name()] = d
	for _, a := range aliases {
		dialects[a] = d
	}
}

func init() {
	register(Postgres{}, "postgresql", "pq")
	register(SQLite{}, "sqlite")
	register(MySQL{})
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q (supported: %v)", name, Names())
	}
	return d, nil
}

// Names returns the registered dialect names.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name, d := range dialects {
		if name == d.Name() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
