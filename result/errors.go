package result

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/pgorm/driver"
)

// Error types for result handling.
var (
	// ErrStatement is returned when a statement completed with a status other
	// than "modified rows" or "returned rows".
	ErrStatement = errors.New("statement failed")

	// ErrOutOfBounds is returned when a row index lies outside the row set.
	ErrOutOfBounds = errors.New("row index out of bounds")
)

// StatementError carries the driver's detail for a failed statement.
type StatementError struct {
	Status driver.Status
	Tag    string
	Cause  error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("statement failed (%s): %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("statement failed (%s)", e.Status)
}

// Unwrap returns the driver error.
func (e *StatementError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrStatement.
func (e *StatementError) Is(target error) bool {
	return target == ErrStatement
}

// BoundsError is returned by NthRow for an index outside [0, Len).
type BoundsError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *BoundsError) Error() string {
	return fmt.Sprintf("row %d out of bounds: result has %d rows", e.Index, e.Len)
}

// Is reports whether target is ErrOutOfBounds.
func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// IsOutOfBounds checks if an error is a bounds error.
func IsOutOfBounds(err error) bool {
	return errors.Is(err, ErrOutOfBounds)
}
