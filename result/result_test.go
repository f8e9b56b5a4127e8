package result_test

import (
	"errors"
	"testing"

	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/driver/drivertest"
	"github.com/satishbabariya/pgorm/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sixRows() *drivertest.Rows {
	return drivertest.NewRows([]string{"ID", "Name"},
		[]any{1, "a"}, []any{2, "b"}, []any{3, nil},
		[]any{4, "d"}, []any{5, "e"}, []any{6, "f"},
	)
}

func queryResult(t *testing.T, rows *drivertest.Rows) *result.QueryResult {
	t.Helper()
	res, err := result.New(drivertest.Tuples(rows))
	require.NoError(t, err)
	q, ok := res.(*result.QueryResult)
	require.True(t, ok, "expected a query result, got %T", res)
	return q
}

func TestNewClassifies(t *testing.T) {
	res, err := result.New(drivertest.Modified(3))
	require.NoError(t, err)
	assert.Equal(t, result.ModifyResult{AffectedRows: 3, Tag: "UPDATE 3"}, res)

	res, err = result.New(drivertest.Tuples(sixRows()))
	require.NoError(t, err)
	assert.IsType(t, &result.QueryResult{}, res)
	assert.Equal(t, "SELECT 6", res.CommandTag())
}

func TestNewFailure(t *testing.T) {
	_, err := result.New(drivertest.Failed(`relation "x" does not exist`))
	require.Error(t, err)
	assert.ErrorIs(t, err, result.ErrStatement)
	assert.ErrorContains(t, err, `relation "x" does not exist`)

	var stmtErr *result.StatementError
	require.True(t, errors.As(err, &stmtErr))
	assert.Equal(t, driver.StatusFatal, stmtErr.Status)

	_, err = result.New(&driver.Raw{})
	assert.ErrorIs(t, err, result.ErrStatement)
}

func TestNumRowsCached(t *testing.T) {
	rows := sixRows()
	q := queryResult(t, rows)
	before := rows.NumRowsCalls()

	for range 3 {
		n, err := q.NumRows()
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	}
	assert.LessOrEqual(t, rows.NumRowsCalls()-before, 1)
}

func TestNthRowFetchesOnce(t *testing.T) {
	rows := sixRows()
	q := queryResult(t, rows)

	_, err := q.NthRow(1)
	require.NoError(t, err)
	_, err = q.NthRow(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Fetches(1))
}

func TestNthRowHighWaterMark(t *testing.T) {
	rows := sixRows()
	q := queryResult(t, rows)

	row, err := q.NthRow(5)
	require.NoError(t, err)
	assert.Equal(t, "f", row.String("Name"))
	assert.Equal(t, 6, q.Fetched())
	assert.Equal(t, 6, rows.TotalFetches())

	row, err = q.NthRow(2)
	require.NoError(t, err)
	_, ok := row.Get("Name")
	assert.False(t, ok)
	assert.Equal(t, "3", row.String("ID"))
	assert.Equal(t, 6, rows.TotalFetches())
	for i := range 6 {
		assert.Equal(t, 1, rows.Fetches(i), "row %d", i)
	}
}

func TestNthRowBounds(t *testing.T) {
	q := queryResult(t, sixRows())

	for _, i := range []int{-1, 6, 100} {
		_, err := q.NthRow(i)
		assert.ErrorIs(t, err, result.ErrOutOfBounds)
		assert.True(t, result.IsOutOfBounds(err))
	}
	assert.Equal(t, 0, q.Fetched())
}

func TestRowsRestartable(t *testing.T) {
	rows := sixRows()
	q := queryResult(t, rows)

	var ids []string
	for row, err := range q.Rows() {
		require.NoError(t, err)
		ids = append(ids, row.String("ID"))
		if len(ids) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, 2, q.Fetched())

	ids = nil
	for row, err := range q.Rows() {
		require.NoError(t, err)
		ids = append(ids, row.String("ID"))
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, ids)
	assert.Equal(t, 6, rows.TotalFetches())
}

func TestEmptyRowSet(t *testing.T) {
	q := queryResult(t, drivertest.NewRows([]string{"ID"}))

	n, err := q.NumRows()
	require.NoError(t, err)
	assert.Zero(t, n)

	for range q.Rows() {
		t.Fatal("empty row set yielded a row")
	}
	assert.Equal(t, []string{"ID"}, q.Columns())
}
