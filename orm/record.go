package orm

import (
	"context"
	"errors"
	"strings"

	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/result"
)

// Save stores rec. A record without original values is inserted; otherwise
// the columns whose values changed are updated in the row identified by the
// original primary key. It returns the number of affected rows.
func Save(ctx context.Context, p conn.Provider, rec Record) (int64, error) {
	table := TableOf(rec)
	q := NewQuery[result.Row](p, table, RowLoader)
	c, err := q.conn()
	if err != nil {
		return 0, err
	}

	values := rec.Values()
	original := rec.Original()
	if original == nil {
		return insert(ctx, c, table, values)
	}
	if len(table.PrimaryKey) == 0 {
		return 0, errors.New("orm: table has no primary key")
	}

	changed := make(map[string]any)
	for _, col := range table.Columns {
		v, ok := values[col]
		if !ok {
			continue
		}
		if c.EscapeValue(v) != c.EscapeValue(original[col]) {
			changed[col] = v
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	for _, pk := range table.PrimaryKey {
		q = q.Filter(pk, original[pk])
	}
	return q.Update(ctx, changed)
}

func insert(ctx context.Context, c *conn.Conn, table Table, values map[string]any) (int64, error) {
	var cols, vals []string
	for _, col := range table.Columns {
		v, ok := values[col]
		if !ok {
			continue
		}
		cols = append(cols, c.QuoteIdentifier(col))
		vals = append(vals, c.EscapeValue(v))
	}
	if len(cols) == 0 {
		return 0, errors.New("orm: insert without values")
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(c.QuoteIdentifier(table.Name))
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(vals, ", "))
	b.WriteString(")")
	return c.Exec(ctx, b.String())
}
