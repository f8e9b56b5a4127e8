// Package pgwire implements driver.Driver on the PostgreSQL wire protocol.
package pgwire

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/satishbabariya/pgorm/driver"
)

// Driver is a single PostgreSQL connection. Statements are sent with the
// simple query protocol, so one dispatch may carry several statements
// separated by semicolons.
type Driver struct {
	pg    *pgconn.PgConn
	batch driver.Batch
}

// Connect opens a connection described by dsn, either a URL or a
// key=value connection string.
func Connect(ctx context.Context, dsn string) (*Driver, error) {
	pg, err := pgconn.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Driver{pg: pg}, nil
}

// Dispatch implements driver.Driver.
func (d *Driver) Dispatch(ctx context.Context, sql string) error {
	if d.pg.IsClosed() {
		return driver.ErrClosed
	}
	// The batch outlives the call; cancelling it would break the connection.
	ctx = context.WithoutCancel(ctx)
	return d.batch.Start(func() ([]*driver.Raw, error) {
		results, err := d.pg.Exec(ctx, sql).ReadAll()
		return convert(results, err)
	})
}

// Ready implements driver.Driver.
func (d *Driver) Ready() <-chan struct{} {
	return d.batch.Ready()
}

// NextResult implements driver.Driver.
func (d *Driver) NextResult(ctx context.Context) (*driver.Raw, error) {
	return d.batch.Next(ctx)
}

// QuoteIdentifier implements driver.Driver.
func (d *Driver) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QuoteLiteral implements driver.Driver.
func (d *Driver) QuoteLiteral(s string) string {
	return pq.QuoteLiteral(s)
}

// ServerVersion reports the server_version parameter sent at startup.
func (d *Driver) ServerVersion(ctx context.Context) (string, error) {
	v := d.pg.ParameterStatus("server_version")
	if v == "" {
		return "", errors.New("server did not report server_version")
	}
	return v, nil
}

// Close implements driver.Driver.
func (d *Driver) Close(ctx context.Context) error {
	d.batch.Wait()
	return d.pg.Close(ctx)
}

func convert(results []*pgconn.Result, err error) ([]*driver.Raw, error) {
	out := make([]*driver.Raw, 0, len(results)+1)
	for _, r := range results {
		out = append(out, toRaw(r))
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].Status != driver.StatusFatal {
			out = append(out, &driver.Raw{Status: driver.StatusFatal, Err: describe(pgErr)})
		}
	}
	return out, nil
}

func toRaw(r *pgconn.Result) *driver.Raw {
	if r.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(r.Err, &pgErr) {
			return &driver.Raw{Status: driver.StatusFatal, Err: describe(pgErr)}
		}
		return &driver.Raw{Status: driver.StatusFatal, Err: r.Err}
	}

	raw := &driver.Raw{
		Tag:          r.CommandTag.String(),
		RowsAffected: r.CommandTag.RowsAffected(),
	}
	if len(r.FieldDescriptions) == 0 {
		raw.Status = driver.StatusCommandOK
		return raw
	}

	names := make([]string, len(r.FieldDescriptions))
	for i, fd := range r.FieldDescriptions {
		names[i] = fd.Name
	}
	values := make([][]*string, len(r.Rows))
	for i, row := range r.Rows {
		values[i] = make([]*string, len(row))
		for j, v := range row {
			values[i][j] = driver.Text(v)
		}
	}
	raw.Status = driver.StatusTuplesOK
	raw.Rows = &driver.BufferedRows{Names: names, Values: values}
	return raw
}

func describe(e *pgconn.PgError) error {
	if e.Detail != "" {
		return fmt.Errorf("%w: %s", e, e.Detail)
	}
	return e
}

var _ driver.Driver = (*Driver)(nil)
