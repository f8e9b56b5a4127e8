// Package driver defines the wire shape a database driver must offer.
package driver

import (
	"context"
	"errors"
)

// Status is the completion status of one underlying result.
type Status int

const (
	// StatusCommandOK means the statement completed without a row set.
	StatusCommandOK Status = iota + 1
	// StatusTuplesOK means the statement returned a row set, possibly empty.
	StatusTuplesOK
	// StatusFatal means the statement failed.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusCommandOK:
		return "COMMAND_OK"
	case StatusTuplesOK:
		return "TUPLES_OK"
	case StatusFatal:
		return "FATAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Raw is one underlying result of a dispatched statement batch.
type Raw struct {
	Status       Status
	Tag          string
	RowsAffected int64
	Rows         RowSource
	Err          error
}

// RowSource gives access to the rows of a row set. Values are text, with nil
// standing for SQL NULL. Callers fetch rows in increasing order.
type RowSource interface {
	// Columns returns the column names of the row set.
	Columns() []string

	// NumRows returns the number of rows in the row set.
	NumRows() (int, error)

	// Fetch returns row i.
	Fetch(i int) ([]*string, error)
}

// Driver is one physical link to a database.
type Driver interface {
	// Dispatch sends one statement batch without waiting for its results.
	Dispatch(ctx context.Context, sql string) error

	// Ready returns a channel closed once every result of the batch last
	// dispatched is available.
	Ready() <-chan struct{}

	// NextResult returns the next result of the dispatched batch, or
	// (nil, nil) once the batch has been drained.
	NextResult(ctx context.Context) (*Raw, error)

	// QuoteIdentifier returns name quoted as an identifier.
	QuoteIdentifier(name string) string

	// QuoteLiteral returns s quoted as a string literal.
	QuoteLiteral(s string) string

	// Close closes the link.
	Close(ctx context.Context) error
}

// Versioner is implemented by drivers able to report the server version.
type Versioner interface {
	ServerVersion(ctx context.Context) (string, error)
}

// ErrBusy is returned by Dispatch while the results of a previous batch have
// not been drained.
var ErrBusy = errors.New("driver: previous batch not drained")

// ErrClosed is returned by a driver after Close.
var ErrClosed = errors.New("driver: closed")

// Text converts a raw wire value into its text form.
func Text(b []byte) *string {
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}
