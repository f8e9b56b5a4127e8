package orm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/result"
	"github.com/satishbabariya/pgorm/sqltype"
)

// Query is an immutable SELECT builder over one table. Every method that
// changes the query returns a new builder and leaves the receiver as it was,
// so a builder can serve as the template for several branches.
//
// Errors from building, such as an unknown column, are kept by the returned
// builder and reported when the query is rendered or run.
type Query[T any] struct {
	p     conn.Provider
	table Table
	load  Loader[T]

	// fields replaces the default projection when non-nil.
	fields  []string
	wheres  []string
	orders  []string
	joins   []string
	groups  []string
	havings []string
	limit   int
	offset  int
	from    string
	err     error

	memo *memo
}

// memo holds the result of a builder's one execution.
type memo struct {
	mu  sync.Mutex
	res result.Result
}

// NewQuery returns a builder selecting every column of t, mapping rows with
// load.
func NewQuery[T any](p conn.Provider, t Table, load Loader[T]) *Query[T] {
	return &Query[T]{
		p:      p,
		table:  t,
		load:   load,
		limit:  -1,
		offset: -1,
		memo:   &memo{},
	}
}

// From returns a builder for the table of the row type T.
func From[T DataTable](p conn.Provider, load Loader[T]) *Query[T] {
	var zero T
	return NewQuery(p, TableOf(zero), load)
}

// Table returns the table the builder queries.
func (q *Query[T]) Table() Table { return q.table }

// Err returns the first error recorded while building.
func (q *Query[T]) Err() error { return q.err }

func (q *Query[T]) clone() *Query[T] {
	c := &Query[T]{
		p:       q.p,
		table:   q.table,
		load:    q.load,
		fields:  slices.Clone(q.fields),
		wheres:  slices.Clone(q.wheres),
		orders:  slices.Clone(q.orders),
		joins:   slices.Clone(q.joins),
		groups:  slices.Clone(q.groups),
		havings: slices.Clone(q.havings),
		limit:   q.limit,
		offset:  q.offset,
		from:    q.from,
		err:     q.err,
		memo:    &memo{},
	}
	return c
}

func (q *Query[T]) fail(err error) *Query[T] {
	c := q.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

func (q *Query[T]) conn() (*conn.Conn, error) {
	if q.p == nil {
		return nil, ErrNoConnection
	}
	c := q.p.Conn()
	if c == nil {
		return nil, ErrNoConnection
	}
	return c, nil
}

// column validates name and returns it qualified by the table.
func (q *Query[T]) column(e sqltype.Escaper, name string) (string, error) {
	if !q.table.HasColumn(name) {
		return "", &ValidationError{
			Table: q.table.Name,
			Field: name,
			Valid: q.table.Columns,
			Kind:  ErrInvalidField,
		}
	}
	return sqltype.EscapeQualified(e, q.table.Name, name), nil
}

// Filter adds the condition field = value. A nil value compares with IS NULL.
func (q *Query[T]) Filter(field string, value any) *Query[T] {
	return q.FilterOp(field, "=", value)
}

// FilterOp adds the condition field <comparator> value. For a nil value
// "=" becomes IS and "!=" or "<>" becomes IS NOT.
func (q *Query[T]) FilterOp(field, comparator string, value any) *Query[T] {
	if q.err != nil {
		return q.clone()
	}
	c, err := q.conn()
	if err != nil {
		return q.fail(err)
	}
	col, err := q.column(c, field)
	if err != nil {
		return q.fail(err)
	}
	op, err := normalizeComparator(q.table.Name, comparator)
	if err != nil {
		return q.fail(err)
	}
	n := q.clone()
	n.wheres = append(n.wheres, comparison(c, col, op, value))
	return n
}

// Where adds an already escaped condition.
func (q *Query[T]) Where(raw string) *Query[T] {
	n := q.clone()
	if strings.TrimSpace(raw) != "" {
		n.wheres = append(n.wheres, raw)
	}
	return n
}

// SortBy orders by field, descending only when dir is exactly "DESC".
func (q *Query[T]) SortBy(field, dir string) *Query[T] {
	if q.err != nil {
		return q.clone()
	}
	c, err := q.conn()
	if err != nil {
		return q.fail(err)
	}
	col, err := q.column(c, field)
	if err != nil {
		return q.fail(err)
	}
	if dir == "DESC" {
		col += " DESC"
	} else {
		col += " ASC"
	}
	n := q.clone()
	n.orders = append(n.orders, col)
	return n
}

// Sort adds an already escaped ORDER BY term.
func (q *Query[T]) Sort(raw string) *Query[T] {
	n := q.clone()
	if strings.TrimSpace(raw) != "" {
		n.orders = append(n.orders, raw)
	}
	return n
}

// Join adds a join clause. Any join makes the query SELECT DISTINCT.
func (q *Query[T]) Join(raw string) *Query[T] {
	n := q.clone()
	if strings.TrimSpace(raw) != "" {
		n.joins = append(n.joins, raw)
	}
	return n
}

// Limit sets the LIMIT clause. A negative n removes it.
func (q *Query[T]) Limit(n int) *Query[T] {
	c := q.clone()
	c.limit = max(n, -1)
	return c
}

// LimitOffset sets the LIMIT and OFFSET clauses. Negative values remove them.
func (q *Query[T]) LimitOffset(n, offset int) *Query[T] {
	c := q.clone()
	c.limit = max(n, -1)
	c.offset = max(offset, -1)
	return c
}

// Offset sets the OFFSET clause. A negative n removes it.
func (q *Query[T]) Offset(n int) *Query[T] {
	c := q.clone()
	c.offset = max(n, -1)
	return c
}

// From replaces the FROM clause source, e.g. with a subquery.
func (q *Query[T]) From(raw string) *Query[T] {
	c := q.clone()
	c.from = raw
	return c
}

// QueryString renders the SELECT statement.
func (q *Query[T]) QueryString() (string, error) {
	if q.err != nil {
		return "", q.err
	}
	c, err := q.conn()
	if err != nil {
		return "", err
	}
	return q.render(c), nil
}

func (q *Query[T]) render(e sqltype.Escaper) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.joins) > 0 {
		b.WriteString("DISTINCT ")
	}
	if q.fields != nil {
		b.WriteString(strings.Join(q.fields, ", "))
	} else {
		b.WriteString(strings.Join(q.defaultFields(e), ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(q.source(e))
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	writeConditions(&b, "WHERE", q.wheres)
	if len(q.groups) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(q.groups, ", "))
	}
	writeConditions(&b, "HAVING", q.havings)
	if len(q.orders) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(q.orders, ", "))
	}
	if q.limit >= 0 {
		b.WriteString("\nLIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	if q.offset >= 0 {
		b.WriteString("\nOFFSET ")
		b.WriteString(strconv.Itoa(q.offset))
	}
	return b.String()
}

func (q *Query[T]) defaultFields(e sqltype.Escaper) []string {
	if len(q.table.Columns) == 0 {
		return []string{e.QuoteIdentifier(q.table.Name) + ".*"}
	}
	fields := make([]string, len(q.table.Columns))
	for i, col := range q.table.Columns {
		fields[i] = sqltype.EscapeQualified(e, q.table.Name, col)
	}
	return fields
}

func (q *Query[T]) source(e sqltype.Escaper) string {
	if q.from != "" {
		return q.from
	}
	return e.QuoteIdentifier(q.table.Name)
}

func writeConditions(b *strings.Builder, keyword string, conds []string) {
	if len(conds) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(keyword)
	b.WriteString(" ")
	for i, cond := range conds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		b.WriteString(cond)
		b.WriteString(")")
	}
}

// Result runs the query. A builder runs its query at most once; later calls
// return the same result.
func (q *Query[T]) Result(ctx context.Context) (result.Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	c, err := q.conn()
	if err != nil {
		return nil, err
	}

	q.memo.mu.Lock()
	defer q.memo.mu.Unlock()
	if q.memo.res != nil {
		return q.memo.res, nil
	}
	res, err := c.Query(ctx, q.render(c))
	if err != nil {
		return nil, err
	}
	q.memo.res = res
	return res, nil
}

func (q *Query[T]) rowSet(ctx context.Context) (*result.QueryResult, error) {
	res, err := q.Result(ctx)
	if err != nil {
		return nil, err
	}
	rs, ok := res.(*result.QueryResult)
	if !ok {
		return nil, ErrNotRowSet
	}
	return rs, nil
}

// Fetch runs the query and returns its rows mapped through the loader. Rows
// are loaded as the sequence is ranged over.
func (q *Query[T]) Fetch(ctx context.Context) (iter.Seq2[T, error], error) {
	if q.load == nil {
		return nil, errors.New("orm: builder has no loader")
	}
	rs, err := q.rowSet(ctx)
	if err != nil {
		return nil, err
	}
	return func(yield func(T, error) bool) {
		for row, err := range rs.Rows() {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			v, err := q.load(row)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}, nil
}

// All runs the query and loads every row.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	seq, err := q.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Nth runs the query and loads row n. It reports false past the end of the
// result.
func (q *Query[T]) Nth(ctx context.Context, n int) (T, bool, error) {
	var zero T
	if q.load == nil {
		return zero, false, errors.New("orm: builder has no loader")
	}
	rs, err := q.rowSet(ctx)
	if err != nil {
		return zero, false, err
	}
	row, err := rs.NthRow(n)
	if result.IsOutOfBounds(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := q.load(row)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// First runs the query and loads its first row.
func (q *Query[T]) First(ctx context.Context) (T, bool, error) {
	return q.Nth(ctx, 0)
}

// Count returns the number of rows matching the filters.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	c := q.clone()
	c.orders = nil
	c.limit, c.offset = -1, -1
	c.fields = nil
	if len(c.joins) > 0 && c.err == nil {
		// Joined rows are counted after DISTINCT, as All returns them.
		e, err := c.conn()
		if err != nil {
			return 0, err
		}
		inner := c.render(e)
		c.joins, c.wheres, c.groups, c.havings = nil, nil, nil, nil
		c.from = "(" + inner + ") AS " + e.QuoteIdentifier("matched")
	}

	row, err := (&Aggregate[T]{q: c}).CountAll("count").one(ctx)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(row.String("count"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return n, nil
}

// Delete removes the rows matching the filters and returns how many were
// deleted.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.joins) > 0 {
		return 0, errors.New("orm: delete does not support joins")
	}
	c, err := q.conn()
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(c.QuoteIdentifier(q.table.Name))
	writeConditions(&b, "WHERE", q.wheres)
	return c.Exec(ctx, b.String())
}

// Update sets columns of the rows matching the filters and returns how many
// were updated.
func (q *Query[T]) Update(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(values) == 0 {
		return 0, errors.New("orm: update without values")
	}
	if len(q.joins) > 0 {
		return 0, errors.New("orm: update does not support joins")
	}
	c, err := q.conn()
	if err != nil {
		return 0, err
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if _, err := q.column(c, col); err != nil {
			return 0, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = c.QuoteIdentifier(col) + "=" + c.EscapeValue(values[col])
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(c.QuoteIdentifier(q.table.Name))
	b.WriteString(" SET ")
	b.WriteString(strings.Join(sets, ", "))
	writeConditions(&b, "WHERE", q.wheres)
	return c.Exec(ctx, b.String())
}

// Aggregated forks the builder into an aggregate query.
func (q *Query[T]) Aggregated() *Aggregate[T] {
	return &Aggregate[T]{q: q.clone()}
}

// CountWith forks into an aggregate query projecting COUNT(field).
func (q *Query[T]) CountWith(field, alias string) *Aggregate[T] {
	return q.Aggregated().CountWith(field, alias)
}

// Max forks into an aggregate query projecting MAX(field).
func (q *Query[T]) Max(field, alias string) *Aggregate[T] {
	return q.Aggregated().Max(field, alias)
}

// Min forks into an aggregate query projecting MIN(field).
func (q *Query[T]) Min(field, alias string) *Aggregate[T] {
	return q.Aggregated().Min(field, alias)
}
