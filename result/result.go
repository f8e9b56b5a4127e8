// Package result classifies statement outcomes and materializes row sets
// lazily.
package result

import (
	"github.com/satishbabariya/pgorm/driver"
)

// Result is the outcome of one executed statement: either a ModifyResult or
// a *QueryResult.
type Result interface {
	// CommandTag returns the completion tag reported by the driver.
	CommandTag() string

	isResult()
}

// ModifyResult is the outcome of a statement that returned no row set.
type ModifyResult struct {
	AffectedRows int64
	Tag          string
}

// CommandTag implements Result.
func (m ModifyResult) CommandTag() string { return m.Tag }

func (ModifyResult) isResult() {}

// New classifies a raw driver result.
func New(raw *driver.Raw) (Result, error) {
	switch raw.Status {
	case driver.StatusCommandOK:
		return ModifyResult{AffectedRows: raw.RowsAffected, Tag: raw.Tag}, nil
	case driver.StatusTuplesOK:
		if raw.Rows == nil {
			return nil, &StatementError{Status: raw.Status, Tag: raw.Tag}
		}
		return newQueryResult(raw.Rows, raw.Tag), nil
	default:
		return nil, &StatementError{Status: raw.Status, Tag: raw.Tag, Cause: raw.Err}
	}
}

// Row is one row of a row set keyed by column name. A nil value is SQL NULL.
type Row map[string]*string

// Get returns the value of col and whether it is non-NULL.
func (r Row) Get(col string) (string, bool) {
	v := r[col]
	if v == nil {
		return "", false
	}
	return *v, true
}

// String returns the value of col, or "" for NULL and missing columns.
func (r Row) String(col string) string {
	v, _ := r.Get(col)
	return v
}
