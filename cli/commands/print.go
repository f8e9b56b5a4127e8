package commands

import (
	"fmt"
	"io"

	"github.com/satishbabariya/pgorm/cli/internal/ui"
	"github.com/satishbabariya/pgorm/result"
)

// printResult prints a row set as a table, or the affected row count.
func printResult(w io.Writer, res result.Result) error {
	switch r := res.(type) {
	case result.ModifyResult:
		ui.Success(w, "%s (%d rows affected)", r.Tag, r.AffectedRows)
		return nil
	case *result.QueryResult:
		return printRows(w, r)
	default:
		return fmt.Errorf("unexpected result %T", res)
	}
}

func printRows(w io.Writer, r *result.QueryResult) error {
	cols := r.Columns()
	var rows [][]string
	for row, err := range r.Rows() {
		if err != nil {
			return err
		}
		cells := make([]string, len(cols))
		for i, col := range cols {
			if v, ok := row.Get(col); ok {
				cells[i] = v
			} else {
				cells[i] = "NULL"
			}
		}
		rows = append(rows, cells)
	}
	if err := ui.Table(w, cols, rows); err != nil {
		return err
	}
	ui.Note(w, "(%d rows)", len(rows))
	return nil
}
