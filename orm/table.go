// Package orm composes SQL for one table from filter, sort and join
// operations on an immutable builder and maps the rows it returns onto typed
// values.
package orm

import (
	"slices"

	"github.com/satishbabariya/pgorm/result"
)

// DataTable is implemented by row types. The methods must not depend on the
// receiver's state: builders call them on the zero value.
type DataTable interface {
	// TableName returns the name of the table.
	TableName() string

	// Columns returns the selectable column names, in projection order.
	Columns() []string

	// PrimaryKey returns the primary-key column names.
	PrimaryKey() []string
}

// Record is a row that tracks its column values.
type Record interface {
	DataTable

	// Values returns the current column values.
	Values() map[string]any

	// Original returns the column values as last loaded, or nil for a row
	// not yet stored.
	Original() map[string]any
}

// Table describes the table a builder queries.
type Table struct {
	Name       string
	Columns    []string
	PrimaryKey []string
}

// TableOf describes the table of t.
func TableOf(t DataTable) Table {
	return Table{
		Name:       t.TableName(),
		Columns:    slices.Clone(t.Columns()),
		PrimaryKey: slices.Clone(t.PrimaryKey()),
	}
}

// HasColumn reports whether name is a column of the table.
func (t Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Loader builds a typed value from a row.
type Loader[T any] func(result.Row) (T, error)

// RowLoader returns rows unchanged.
func RowLoader(row result.Row) (result.Row, error) {
	return row, nil
}
