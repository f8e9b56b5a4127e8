package orm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/driver/drivertest"
	"github.com/satishbabariya/pgorm/orm"
	"github.com/satishbabariya/pgorm/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	ID   string
	Name string
}

func (person) TableName() string    { return "T" }
func (person) Columns() []string    { return []string{"ID", "Name"} }
func (person) PrimaryKey() []string { return []string{"ID"} }

func loadPerson(row result.Row) (person, error) {
	return person{ID: row.String("ID"), Name: row.String("Name")}, nil
}

func setup(t *testing.T) (*orm.Query[person], *drivertest.Driver) {
	t.Helper()
	d := drivertest.New()
	return orm.From[person](conn.New(d), loadPerson), d
}

func sql(t *testing.T, q interface{ QueryString() (string, error) }) string {
	t.Helper()
	s, err := q.QueryString()
	require.NoError(t, err)
	return s
}

func TestQueryShape(t *testing.T) {
	q, _ := setup(t)

	got := sql(t, q.Filter("ID", 1).Join(`JOIN "U" ON "U"."TID" = "T"."ID"`).SortBy("ID", ""))
	assert.Equal(t,
		"SELECT DISTINCT \"T\".\"ID\", \"T\".\"Name\" FROM \"T\" JOIN \"U\" ON \"U\".\"TID\" = \"T\".\"ID\"\n"+
			"WHERE (\"T\".\"ID\"='1')\n"+
			"ORDER BY \"T\".\"ID\" ASC",
		got)
}

func TestPlainSelect(t *testing.T) {
	q, _ := setup(t)
	assert.Equal(t, `SELECT "T"."ID", "T"."Name" FROM "T"`, sql(t, q))
}

func TestClauseOrder(t *testing.T) {
	q, _ := setup(t)

	got := sql(t, q.
		SortBy("Name", "DESC").
		Where(`"T"."ID" > 10`).
		FilterOp("Name", "like", "a%").
		Sort(`"T"."ID"`).
		LimitOffset(10, 20))
	assert.Equal(t,
		"SELECT \"T\".\"ID\", \"T\".\"Name\" FROM \"T\"\n"+
			"WHERE (\"T\".\"ID\" > 10) AND (\"T\".\"Name\" LIKE 'a%')\n"+
			"ORDER BY \"T\".\"Name\" DESC, \"T\".\"ID\"\n"+
			"LIMIT 10\n"+
			"OFFSET 20",
		got)
}

func TestSortDirection(t *testing.T) {
	q, _ := setup(t)
	assert.Contains(t, sql(t, q.SortBy("ID", "desc")), `ORDER BY "T"."ID" ASC`)
	assert.Contains(t, sql(t, q.SortBy("ID", "DESC")), `ORDER BY "T"."ID" DESC`)
}

func TestLimitOffset(t *testing.T) {
	q, _ := setup(t)

	assert.NotContains(t, sql(t, q.Limit(-1)), "LIMIT")
	assert.NotContains(t, sql(t, q.Offset(-5)), "OFFSET")
	assert.Equal(t, "SELECT \"T\".\"ID\", \"T\".\"Name\" FROM \"T\"\nLIMIT 3", sql(t, q.LimitOffset(3, -1)))
	assert.Equal(t, "SELECT \"T\".\"ID\", \"T\".\"Name\" FROM \"T\"\nOFFSET 0", sql(t, q.Offset(0)))
	assert.NotContains(t, sql(t, q.Limit(5).Limit(-1)), "LIMIT")
}

func TestFromOverride(t *testing.T) {
	q, _ := setup(t)
	got := sql(t, q.From(`(SELECT * FROM "T" WHERE "ID" < '5') AS "T"`))
	assert.Equal(t, `SELECT "T"."ID", "T"."Name" FROM (SELECT * FROM "T" WHERE "ID" < '5') AS "T"`, got)
}

func TestNullComparatorRewrite(t *testing.T) {
	q, _ := setup(t)

	assert.Contains(t, sql(t, q.Filter("ID", nil)), `WHERE ("T"."ID" IS NULL)`)
	assert.Contains(t, sql(t, q.FilterOp("ID", "!=", nil)), `WHERE ("T"."ID" IS NOT NULL)`)
	assert.Contains(t, sql(t, q.FilterOp("ID", "<>", nil)), `WHERE ("T"."ID" IS NOT NULL)`)

	var missing *string
	assert.Contains(t, sql(t, q.Filter("Name", missing)), `WHERE ("T"."Name" IS NULL)`)
}

func TestComparators(t *testing.T) {
	q, _ := setup(t)

	assert.Contains(t, sql(t, q.FilterOp("Name", "not  ilike", "a%")), `("T"."Name" NOT ILIKE 'a%')`)
	assert.Contains(t, sql(t, q.FilterOp("ID", ">=", 3)), `("T"."ID">='3')`)
	assert.Contains(t, sql(t, q.FilterOp("ID", "in", []int{1, 2})), `("T"."ID" IN ('1','2'))`)
	assert.Contains(t, sql(t, q.FilterOp("ID", "NOT IN", []int{})), `("T"."ID" NOT IN (NULL))`)
	assert.Contains(t, sql(t, q.Filter("Name", "O'Brien")), `("T"."Name"='O''Brien')`)

	bad := q.FilterOp("ID", "~~", 1)
	assert.ErrorIs(t, bad.Err(), orm.ErrInvalidComparator)
	assert.True(t, orm.IsValidation(bad.Err()))
}

func TestBuilderImmutability(t *testing.T) {
	base, _ := setup(t)
	b1 := base.Filter("ID", 1)
	before := sql(t, b1)

	b2 := b1.Filter("Name", "x").SortBy("Name", "DESC").Join("JOIN u ON true").Limit(1)
	_ = b1.Where("1=1").Sort("1").Offset(3).From("other")

	assert.Equal(t, before, sql(t, b1))
	assert.NotEqual(t, before, sql(t, b2))
	assert.Equal(t, `SELECT "T"."ID", "T"."Name" FROM "T"`, sql(t, base))
}

func TestFieldValidation(t *testing.T) {
	q, d := setup(t)

	bad := q.Filter("NoSuchColumn", 1)
	err := bad.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, orm.ErrInvalidField)
	assert.Contains(t, err.Error(), "NoSuchColumn")
	assert.Contains(t, err.Error(), "ID, Name")

	var vErr *orm.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{"ID", "Name"}, vErr.Valid)

	// The error survives further building and stops execution.
	later := bad.SortBy("ID", "").Filter("Name", "x")
	_, err = later.QueryString()
	assert.ErrorIs(t, err, orm.ErrInvalidField)
	_, err = later.Fetch(context.Background())
	assert.ErrorIs(t, err, orm.ErrInvalidField)
	_, _, err = later.First(context.Background())
	assert.ErrorIs(t, err, orm.ErrInvalidField)
	assert.Empty(t, d.Statements())

	assert.ErrorIs(t, q.SortBy("Nope", "ASC").Err(), orm.ErrInvalidField)
	assert.ErrorIs(t, q.Max("Nope", "").Err(), orm.ErrInvalidField)
	assert.ErrorIs(t, q.Aggregated().GroupBy("Nope").Err(), orm.ErrInvalidField)
}

func TestValidationErrorTruncatesValidNames(t *testing.T) {
	cols := make([]string, 13)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	q := orm.NewQuery[result.Row](conn.New(drivertest.New()), orm.Table{Name: "wide", Columns: cols}, orm.RowLoader)

	err := q.Filter("missing", 1).Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c0, c1, c2, c3, c4, c5, c6, c7, c8, c9 (and 3 more)")
	assert.NotContains(t, err.Error(), "c10")
}

func TestNoConnection(t *testing.T) {
	q := orm.From[person](conn.ProviderFunc(func() *conn.Conn { return nil }), loadPerson)

	_, err := q.QueryString()
	assert.ErrorIs(t, err, orm.ErrNoConnection)
	assert.ErrorIs(t, q.Filter("ID", 1).Err(), orm.ErrNoConnection)
}

func TestFetchAndMemo(t *testing.T) {
	q, d := setup(t)
	b1 := q.SortBy("ID", "")
	stmt := sql(t, b1)
	d.On(stmt, drivertest.Tuples(drivertest.NewRows([]string{"ID", "Name"},
		[]any{1, "Ann"}, []any{2, "Bob"}, []any{3, nil},
	)))
	ctx := context.Background()

	people, err := b1.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []person{{"1", "Ann"}, {"2", "Bob"}, {"3", ""}}, people)

	seq, err := b1.Fetch(ctx)
	require.NoError(t, err)
	var names []string
	for p, err := range seq {
		require.NoError(t, err)
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Ann", "Bob", ""}, names)

	p, ok, err := b1.Nth(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bob", p.Name)

	_, ok, err = b1.Nth(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	first, ok, err := b1.First(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ann", first.Name)

	assert.Equal(t, []string{stmt}, d.Statements(), "builder must execute once")

	// A fork of the same query does not share the memoized result.
	b2 := b1.Limit(-1)
	_, err = b2.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{stmt, stmt}, d.Statements())

	r1, err := b1.Result(ctx)
	require.NoError(t, err)
	r2, err := b2.Result(ctx)
	require.NoError(t, err)
	assert.NotSame(t, r1, r2)
}

func TestFetchOnModifyResult(t *testing.T) {
	q, _ := setup(t)
	_, err := q.All(context.Background())
	assert.ErrorIs(t, err, orm.ErrNotRowSet)
}

func TestLoaderError(t *testing.T) {
	d := drivertest.New()
	boom := errors.New("bad row")
	q := orm.From[person](conn.New(d), func(result.Row) (person, error) { return person{}, boom })
	d.On(sql(t, q), drivertest.Tuples(drivertest.NewRows([]string{"ID", "Name"}, []any{1, "a"})))

	_, err := q.All(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDeleteAndUpdate(t *testing.T) {
	q, d := setup(t)
	ctx := context.Background()
	d.On("DELETE FROM \"T\"\nWHERE (\"T\".\"ID\"='1')", drivertest.Modified(1))
	d.On("UPDATE \"T\" SET \"ID\"='9', \"Name\"=NULL\nWHERE (\"T\".\"Name\" LIKE 'a%')", drivertest.Modified(2))

	n, err := q.Filter("ID", 1).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = q.FilterOp("Name", "LIKE", "a%").Update(ctx, map[string]any{"Name": nil, "ID": 9})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = q.Update(ctx, map[string]any{"Nope": 1})
	assert.ErrorIs(t, err, orm.ErrInvalidField)
	_, err = q.Join("JOIN u ON true").Delete(ctx)
	assert.Error(t, err)
	assert.Len(t, d.Statements(), 2)
}
