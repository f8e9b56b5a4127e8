package result

import (
	"iter"
	"sync"

	"github.com/satishbabariya/pgorm/driver"
)

// QueryResult is a row set. Rows are pulled from the driver on demand, in
// order, and cached; a row once pulled is never fetched again.
type QueryResult struct {
	src     driver.RowSource
	columns []string
	tag     string

	mu      sync.Mutex
	counted bool
	numRows int
	cache   []Row
}

func newQueryResult(src driver.RowSource, tag string) *QueryResult {
	return &QueryResult{src: src, columns: src.Columns(), tag: tag}
}

func (*QueryResult) isResult() {}

// CommandTag implements Result.
func (q *QueryResult) CommandTag() string { return q.tag }

// Columns returns the column names of the row set.
func (q *QueryResult) Columns() []string { return q.columns }

// NumRows returns the number of rows. The driver is asked once.
func (q *QueryResult) NumRows() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numRowsLocked()
}

func (q *QueryResult) numRowsLocked() (int, error) {
	if q.counted {
		return q.numRows, nil
	}
	n, err := q.src.NumRows()
	if err != nil {
		return 0, err
	}
	q.numRows = n
	q.counted = true
	return n, nil
}

// NthRow returns row i, pulling every row between the cached ones and i.
func (q *QueryResult) NthRow(i int) (Row, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, err := q.numRowsLocked()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= n {
		return nil, &BoundsError{Index: i, Len: n}
	}
	for len(q.cache) <= i {
		values, err := q.src.Fetch(len(q.cache))
		if err != nil {
			return nil, err
		}
		q.cache = append(q.cache, q.makeRow(values))
	}
	return q.cache[i], nil
}

func (q *QueryResult) makeRow(values []*string) Row {
	row := make(Row, len(q.columns))
	for i, col := range q.columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = nil
		}
	}
	return row
}

// Rows returns a lazy view over the row set. Every range over it starts at
// row 0; cached rows are served without touching the driver.
func (q *QueryResult) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		n, err := q.NumRows()
		if err != nil {
			yield(nil, err)
			return
		}
		for i := 0; i < n; i++ {
			row, err := q.NthRow(i)
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Fetched returns how many rows have been pulled from the driver.
func (q *QueryResult) Fetched() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cache)
}
