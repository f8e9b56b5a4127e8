// Package sqldb implements driver.Driver over database/sql. The pool is
// limited to one connection and a single *sql.Conn is pinned for the life of
// the driver, so every statement travels over the same physical link.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/satishbabariya/pgorm/driver"
)

// DefaultConnectTimeout bounds the initial ping.
const DefaultConnectTimeout = 10 * time.Second

// Driver is a single database/sql connection.
type Driver struct {
	dialect Dialect
	db      *sql.DB
	conn    *sql.Conn
	batch   driver.Batch
}

// Open connects to the database named by dsn using the dialect registered as
// dialectName.
func Open(ctx context.Context, dialectName, dsn string) (*Driver, error) {
	dialect, err := Lookup(dialectName)
	if err != nil {
		return nil, err
	}
	dsn, err = dialect.Normalize(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	conn, err := db.Conn(pingCtx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range dialect.Setup() {
		if _, err := conn.ExecContext(pingCtx, stmt); err != nil {
			conn.Close()
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	return &Driver{dialect: dialect, db: db, conn: conn}, nil
}

// Dialect returns the dialect in use.
func (d *Driver) Dialect() Dialect { return d.dialect }

// Dispatch implements driver.Driver. The batch is split into statements
// which run in order; the first failing statement ends the batch.
func (d *Driver) Dispatch(ctx context.Context, sql string) error {
	if d.conn == nil {
		return driver.ErrClosed
	}
	stmts, err := splitBatch(sql, d.dialect.BackslashEscapes())
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	return d.batch.Start(func() ([]*driver.Raw, error) {
		return d.run(ctx, stmts)
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
	return d.dialect.QuoteIdentifier(name)
}

// QuoteLiteral implements driver.Driver.
func (d *Driver) QuoteLiteral(s string) string {
	return d.dialect.QuoteLiteral(s)
}

// ServerVersion returns the version reported by the server. The query runs
// as a batch of its own, so it fails with driver.ErrBusy while a dispatched
// batch has not been drained; conn.Conn.ServerVersion waits for the wire.
func (d *Driver) ServerVersion(ctx context.Context) (string, error) {
	if d.conn == nil {
		return "", driver.ErrClosed
	}
	var version string
	err := d.batch.Start(func() ([]*driver.Raw, error) {
		return nil, d.conn.QueryRowContext(ctx, d.dialect.VersionQuery()).Scan(&version)
	})
	if err != nil {
		return "", err
	}
	if _, err := d.batch.Next(context.WithoutCancel(ctx)); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return version, nil
}

// Close implements driver.Driver.
func (d *Driver) Close(ctx context.Context) error {
	if d.conn == nil {
		return driver.ErrClosed
	}
	d.batch.Wait()
	err := d.conn.Close()
	if cerr := d.db.Close(); err == nil {
		err = cerr
	}
	d.conn = nil
	return err
}

func (d *Driver) run(ctx context.Context, stmts []statement) ([]*driver.Raw, error) {
	var out []*driver.Raw
	for _, stmt := range stmts {
		var (
			raws []*driver.Raw
			err  error
		)
		if stmt.returnsRows() {
			raws, err = d.query(ctx, stmt)
		} else {
			raws, err = d.exec(ctx, stmt)
		}
		if err != nil {
			detailed, ok := d.dialect.StatementError(err)
			if !ok {
				return nil, err
			}
			return append(out, &driver.Raw{Status: driver.StatusFatal, Err: detailed}), nil
		}
		out = append(out, raws...)
	}
	return out, nil
}

func (d *Driver) exec(ctx context.Context, stmt statement) ([]*driver.Raw, error) {
	res, err := d.conn.ExecContext(ctx, stmt.text)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}
	return []*driver.Raw{{
		Status:       driver.StatusCommandOK,
		Tag:          tag(stmt.keyword, n),
		RowsAffected: n,
	}}, nil
}

func (d *Driver) query(ctx context.Context, stmt statement) ([]*driver.Raw, error) {
	rows, err := d.conn.QueryContext(ctx, stmt.text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*driver.Raw
	for {
		buffered, err := readRows(rows)
		if err != nil {
			return nil, err
		}
		n := int64(len(buffered.Values))
		out = append(out, &driver.Raw{
			Status:       driver.StatusTuplesOK,
			Tag:          tag(stmt.keyword, n),
			RowsAffected: n,
			Rows:         buffered,
		})
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func readRows(rows *sql.Rows) (*driver.BufferedRows, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	buffered := &driver.BufferedRows{Names: names}

	scan := make([]sql.NullString, len(names))
	dest := make([]any, len(names))
	for i := range scan {
		dest[i] = &scan[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]*string, len(names))
		for i, v := range scan {
			if v.Valid {
				s := v.String
				row[i] = &s
			}
		}
		buffered.Values = append(buffered.Values, row)
	}
	return buffered, rows.Err()
}

func tag(keyword string, n int64) string {
	if keyword == "" {
		keyword = "OK"
	}
	return keyword + " " + strconv.FormatInt(n, 10)
}

var _ driver.Driver = (*Driver)(nil)
