package drivertest

import (
	"fmt"
	"sync"

	"github.com/satishbabariya/pgorm/driver"
)

// Rows is a row source that counts how often each row is fetched.
type Rows struct {
	names  []string
	values [][]*string

	mu          sync.Mutex
	fetches     map[int]int
	numRowCalls int
}

// NewRows builds a row source. Each row holds one value per column; nil
// values are SQL NULL and everything else is formatted with fmt.Sprint.
func NewRows(columns []string, rows ...[]any) *Rows {
	values := make([][]*string, len(rows))
	for i, row := range rows {
		values[i] = make([]*string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			s := fmt.Sprint(v)
			values[i][j] = &s
		}
	}
	return &Rows{names: columns, values: values, fetches: make(map[int]int)}
}

// Columns implements driver.RowSource.
func (r *Rows) Columns() []string { return r.names }

// NumRows implements driver.RowSource.
func (r *Rows) NumRows() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numRowCalls++
	return len(r.values), nil
}

// Fetch implements driver.RowSource.
func (r *Rows) Fetch(i int) ([]*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.values) {
		return nil, fmt.Errorf("drivertest: row %d out of range", i)
	}
	r.fetches[i]++
	return r.values[i], nil
}

// Fetches returns how often row i was fetched.
func (r *Rows) Fetches(i int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches[i]
}

// TotalFetches returns the number of Fetch calls over all rows.
func (r *Rows) TotalFetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.fetches {
		total += n
	}
	return total
}

// NumRowsCalls returns how often NumRows was called.
func (r *Rows) NumRowsCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numRowCalls
}

var _ driver.RowSource = (*Rows)(nil)
