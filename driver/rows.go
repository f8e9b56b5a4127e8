package driver

import "fmt"

// BufferedRows is a RowSource over rows already read off the wire.
type BufferedRows struct {
	Names  []string
	Values [][]*string
}

// Columns implements RowSource.
func (b *BufferedRows) Columns() []string { return b.Names }

// NumRows implements RowSource.
func (b *BufferedRows) NumRows() (int, error) { return len(b.Values), nil }

// Fetch implements RowSource.
func (b *BufferedRows) Fetch(i int) ([]*string, error) {
	if i < 0 || i >= len(b.Values) {
		return nil, fmt.Errorf("driver: row %d out of range [0,%d)", i, len(b.Values))
	}
	return b.Values[i], nil
}

var _ RowSource = (*BufferedRows)(nil)
