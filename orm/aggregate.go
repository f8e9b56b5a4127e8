package orm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/satishbabariya/pgorm/result"
)

// Aggregate is an immutable query whose projection is a list of grouping
// keys and aggregate expressions. Once an expression has been added the
// table's columns are no longer selected.
type Aggregate[T any] struct {
	q *Query[T]
}

// Err returns the first error recorded while building.
func (a *Aggregate[T]) Err() error { return a.q.err }

func (a *Aggregate[T]) with(q *Query[T]) *Aggregate[T] {
	return &Aggregate[T]{q: q}
}

// project appends expr to the projection, aliased when alias is set.
func (a *Aggregate[T]) project(expr, alias string) *Aggregate[T] {
	if a.q.err != nil {
		return a.with(a.q.clone())
	}
	c, err := a.q.conn()
	if err != nil {
		return a.with(a.q.fail(err))
	}
	if alias != "" {
		expr += " AS " + c.QuoteIdentifier(alias)
	}
	n := a.q.clone()
	if n.fields == nil {
		n.fields = []string{}
	}
	n.fields = append(n.fields, expr)
	return a.with(n)
}

// apply projects fn over a validated column, defaulting the alias to
// <prefix>_<field>.
func (a *Aggregate[T]) apply(fn, prefix, field, alias string) *Aggregate[T] {
	if a.q.err != nil {
		return a.with(a.q.clone())
	}
	c, err := a.q.conn()
	if err != nil {
		return a.with(a.q.fail(err))
	}
	col, err := a.q.column(c, field)
	if err != nil {
		return a.with(a.q.fail(err))
	}
	if alias == "" {
		alias = prefix + "_" + field
	}
	return a.project(fn+"("+col+")", alias)
}

// AddField projects a validated column.
func (a *Aggregate[T]) AddField(field, alias string) *Aggregate[T] {
	if a.q.err != nil {
		return a.with(a.q.clone())
	}
	c, err := a.q.conn()
	if err != nil {
		return a.with(a.q.fail(err))
	}
	col, err := a.q.column(c, field)
	if err != nil {
		return a.with(a.q.fail(err))
	}
	return a.project(col, alias)
}

// AddRaw projects an already escaped expression.
func (a *Aggregate[T]) AddRaw(expr, alias string) *Aggregate[T] {
	return a.project(expr, alias)
}

// Max projects MAX(field), aliased max_<field> by default.
func (a *Aggregate[T]) Max(field, alias string) *Aggregate[T] {
	return a.apply("MAX", "max", field, alias)
}

// Min projects MIN(field), aliased min_<field> by default.
func (a *Aggregate[T]) Min(field, alias string) *Aggregate[T] {
	return a.apply("MIN", "min", field, alias)
}

// Sum projects SUM(field), aliased sum_<field> by default.
func (a *Aggregate[T]) Sum(field, alias string) *Aggregate[T] {
	return a.apply("SUM", "sum", field, alias)
}

// Avg projects AVG(field), aliased avg_<field> by default.
func (a *Aggregate[T]) Avg(field, alias string) *Aggregate[T] {
	return a.apply("AVG", "avg", field, alias)
}

// CountWith projects COUNT(field), aliased count_<field> by default.
func (a *Aggregate[T]) CountWith(field, alias string) *Aggregate[T] {
	return a.apply("COUNT", "count", field, alias)
}

// CountAll projects COUNT(*). The default alias is count_<n>, n being the
// expression's position in the projection, counting from zero.
func (a *Aggregate[T]) CountAll(alias string) *Aggregate[T] {
	if alias == "" {
		alias = fmt.Sprintf("count_%d", len(a.q.fields))
	}
	return a.project("COUNT(*)", alias)
}

// GroupBy groups by a validated column.
func (a *Aggregate[T]) GroupBy(field string) *Aggregate[T] {
	if a.q.err != nil {
		return a.with(a.q.clone())
	}
	c, err := a.q.conn()
	if err != nil {
		return a.with(a.q.fail(err))
	}
	col, err := a.q.column(c, field)
	if err != nil {
		return a.with(a.q.fail(err))
	}
	n := a.q.clone()
	n.groups = append(n.groups, col)
	return a.with(n)
}

// GroupByRaw adds an already escaped grouping term.
func (a *Aggregate[T]) GroupByRaw(raw string) *Aggregate[T] {
	n := a.q.clone()
	if strings.TrimSpace(raw) != "" {
		n.groups = append(n.groups, raw)
	}
	return a.with(n)
}

// Having adds an already escaped HAVING condition.
func (a *Aggregate[T]) Having(raw string) *Aggregate[T] {
	n := a.q.clone()
	if strings.TrimSpace(raw) != "" {
		n.havings = append(n.havings, raw)
	}
	return a.with(n)
}

// Filter is Query.Filter.
func (a *Aggregate[T]) Filter(field string, value any) *Aggregate[T] {
	return a.with(a.q.Filter(field, value))
}

// FilterOp is Query.FilterOp.
func (a *Aggregate[T]) FilterOp(field, comparator string, value any) *Aggregate[T] {
	return a.with(a.q.FilterOp(field, comparator, value))
}

// Where is Query.Where.
func (a *Aggregate[T]) Where(raw string) *Aggregate[T] {
	return a.with(a.q.Where(raw))
}

// Join is Query.Join.
func (a *Aggregate[T]) Join(raw string) *Aggregate[T] {
	return a.with(a.q.Join(raw))
}

// SortBy is Query.SortBy.
func (a *Aggregate[T]) SortBy(field, dir string) *Aggregate[T] {
	return a.with(a.q.SortBy(field, dir))
}

// Sort is Query.Sort.
func (a *Aggregate[T]) Sort(raw string) *Aggregate[T] {
	return a.with(a.q.Sort(raw))
}

// Limit is Query.Limit.
func (a *Aggregate[T]) Limit(n int) *Aggregate[T] {
	return a.with(a.q.Limit(n))
}

// LimitOffset is Query.LimitOffset.
func (a *Aggregate[T]) LimitOffset(n, offset int) *Aggregate[T] {
	return a.with(a.q.LimitOffset(n, offset))
}

// Offset is Query.Offset.
func (a *Aggregate[T]) Offset(n int) *Aggregate[T] {
	return a.with(a.q.Offset(n))
}

// QueryString renders the SELECT statement.
func (a *Aggregate[T]) QueryString() (string, error) {
	return a.q.QueryString()
}

// Result runs the query once; later calls return the same result.
func (a *Aggregate[T]) Result(ctx context.Context) (result.Result, error) {
	return a.q.Result(ctx)
}

// Rows runs the query and returns its rows keyed by alias.
func (a *Aggregate[T]) Rows(ctx context.Context) (iter.Seq2[result.Row, error], error) {
	rs, err := a.q.rowSet(ctx)
	if err != nil {
		return nil, err
	}
	return rs.Rows(), nil
}

func (a *Aggregate[T]) one(ctx context.Context) (result.Row, error) {
	rs, err := a.q.rowSet(ctx)
	if err != nil {
		return nil, err
	}
	return rs.NthRow(0)
}
