package conn

import (
	"errors"
	"fmt"
)

// Error types for connection operations.
var (
	// ErrClosed is returned by every method of a closed connection.
	ErrClosed = errors.New("connection closed")

	// ErrRequestInFlight is returned by MultiQuery while another request
	// occupies the connection.
	ErrRequestInFlight = errors.New("another request is in flight")

	// ErrConnection is returned when a statement could not be dispatched or
	// its results could not be drained.
	ErrConnection = errors.New("connection-level failure")

	// ErrReturnedRows is returned by Exec for a statement that produced a
	// row set.
	ErrReturnedRows = errors.New("statement returned rows")

	// ErrNoVersion is returned by ServerVersion when the driver cannot report
	// the server version.
	ErrNoVersion = errors.New("driver does not report a server version")

	errNoResult = errors.New("statement produced no result")
)

// ConnError is a connection-level failure carrying the driver's error text.
type ConnError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *ConnError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrConnection, e.Cause)
}

// Unwrap returns the driver error.
func (e *ConnError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrConnection.
func (e *ConnError) Is(target error) bool {
	return target == ErrConnection
}

// IsClosed checks if an error reports a closed connection.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
