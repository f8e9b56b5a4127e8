package orm

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for query building.
var (
	// ErrInvalidField is returned for a column the table does not have.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidComparator is returned for an unsupported comparison operator.
	ErrInvalidComparator = errors.New("invalid comparator")

	// ErrNoConnection is returned when the provider supplies no connection.
	ErrNoConnection = errors.New("no connection")

	// ErrNotRowSet is returned when a query produced no row set.
	ErrNotRowSet = errors.New("query did not return rows")
)

// maxListedFields bounds how many valid names a ValidationError lists.
const maxListedFields = 10

// ValidationError reports an unknown column or comparator.
type ValidationError struct {
	Table string
	Field string
	// Valid lists the accepted values.
	Valid []string
	Kind  error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	what := "field"
	if e.Kind == ErrInvalidComparator {
		what = "comparator"
	}
	return fmt.Sprintf("invalid %s %q for table %q: valid values are %s",
		what, e.Field, e.Table, listSample(e.Valid))
}

// Is reports whether target is the error's kind.
func (e *ValidationError) Is(target error) bool {
	return target == e.Kind
}

func listSample(names []string) string {
	if len(names) <= maxListedFields {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s (and %d more)",
		strings.Join(names[:maxListedFields], ", "), len(names)-maxListedFields)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidField) || errors.Is(err, ErrInvalidComparator)
}
