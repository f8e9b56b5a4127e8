package pgwire

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/satishbabariya/pgorm/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	results := []*pgconn.Result{
		{CommandTag: pgconn.NewCommandTag("INSERT 0 3")},
		{
			FieldDescriptions: []pgconn.FieldDescription{{Name: "id"}, {Name: "name"}},
			Rows:              [][][]byte{{[]byte("1"), nil}},
			CommandTag:        pgconn.NewCommandTag("SELECT 1"),
		},
	}

	raws, err := convert(results, nil)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, driver.StatusCommandOK, raws[0].Status)
	assert.Equal(t, int64(3), raws[0].RowsAffected)
	assert.Equal(t, "INSERT 0 3", raws[0].Tag)

	assert.Equal(t, driver.StatusTuplesOK, raws[1].Status)
	assert.Equal(t, []string{"id", "name"}, raws[1].Rows.Columns())
	row, err := raws[1].Rows.Fetch(0)
	require.NoError(t, err)
	assert.Equal(t, "1", *row[0])
	assert.Nil(t, row[1])
}

func TestConvertServerError(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "42P01", Message: `relation "missing" does not exist`}

	raws, err := convert([]*pgconn.Result{{CommandTag: pgconn.NewCommandTag("SELECT 1"), FieldDescriptions: []pgconn.FieldDescription{{Name: "x"}}}}, pgErr)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, driver.StatusFatal, raws[1].Status)

	var got *pgconn.PgError
	require.True(t, errors.As(raws[1].Err, &got))
	assert.Equal(t, "42P01", got.Code)
}

func TestConvertConnectionError(t *testing.T) {
	boom := errors.New("unexpected EOF")
	_, err := convert(nil, boom)
	assert.ErrorIs(t, err, boom)
}

func TestQuoting(t *testing.T) {
	d := &Driver{}
	assert.Equal(t, `"we""ird"`, d.QuoteIdentifier(`we"ird`))
	assert.Equal(t, `'it''s'`, d.QuoteLiteral("it's"))
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("PGORM_TEST_DSN")
	if dsn == "" {
		t.Skip("PGORM_TEST_DSN not set")
	}
	ctx := context.Background()

	d, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer d.Close(ctx)

	require.NoError(t, d.Dispatch(ctx, "SELECT 1 AS one; SELECT NULL::text AS n"))
	<-d.Ready()

	var raws []*driver.Raw
	for {
		r, err := d.NextResult(ctx)
		require.NoError(t, err)
		if r == nil {
			break
		}
		raws = append(raws, r)
	}
	require.Len(t, raws, 2)
	row, err := raws[1].Rows.Fetch(0)
	require.NoError(t, err)
	assert.Nil(t, row[0])

	v, err := d.ServerVersion(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}
