// Package drivertest provides a scripted in-memory driver for tests.
package drivertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/sqltype"
)

// Driver is a driver.Driver that records every statement it is sent and
// answers from a script. Statements without a script entry complete with a
// single StatusCommandOK result.
type Driver struct {
	sqltype.ANSI

	// Latency delays the completion of every batch.
	Latency time.Duration

	// Version is reported by ServerVersion.
	Version string

	batch driver.Batch

	mu          sync.Mutex
	statements  []string
	script      map[string]func() ([]*driver.Raw, error)
	dispatchErr map[string]error
	gate        chan struct{}
	readyGate   chan struct{}
	closed      bool
}

// New returns an empty scripted driver.
func New() *Driver {
	return &Driver{
		script:      make(map[string]func() ([]*driver.Raw, error)),
		dispatchErr: make(map[string]error),
	}
}

// On scripts the results produced by sql.
func (d *Driver) On(sql string, results ...*driver.Raw) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script[sql] = func() ([]*driver.Raw, error) { return results, nil }
	return d
}

// OnFunc scripts sql with a function run every time it is dispatched.
func (d *Driver) OnFunc(sql string, fn func() ([]*driver.Raw, error)) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script[sql] = fn
	return d
}

// FailDispatch makes Dispatch of sql fail with err.
func (d *Driver) FailDispatch(sql string, err error) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatchErr[sql] = err
	return d
}

// Hold keeps every batch dispatched from now on from completing until the
// returned function is called.
func (d *Driver) Hold() (release func()) {
	gate := make(chan struct{})
	d.mu.Lock()
	d.gate = gate
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			if d.gate == gate {
				d.gate = nil
			}
			d.mu.Unlock()
			close(gate)
		})
	}
}

// HoldReady keeps Ready from reporting completed batches until the returned
// function is called. Results can still be drained meanwhile.
func (d *Driver) HoldReady() (release func()) {
	gate := make(chan struct{})
	d.mu.Lock()
	d.readyGate = gate
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			if d.readyGate == gate {
				d.readyGate = nil
			}
			d.mu.Unlock()
			close(gate)
		})
	}
}

// Statements returns every statement dispatched so far, in order.
func (d *Driver) Statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.statements))
	copy(out, d.statements)
	return out
}

// Reset forgets the recorded statements.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statements = nil
}

// Dispatch implements driver.Driver.
func (d *Driver) Dispatch(ctx context.Context, sql string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return driver.ErrClosed
	}
	if err, ok := d.dispatchErr[sql]; ok {
		d.mu.Unlock()
		return err
	}
	fn, ok := d.script[sql]
	if !ok {
		fn = func() ([]*driver.Raw, error) { return []*driver.Raw{Modified(0)}, nil }
	}
	gate := d.gate
	latency := d.Latency
	d.mu.Unlock()

	// Like a real driver, the batch is abandoned when ctx ends before it
	// completes.
	err := d.batch.Start(func() ([]*driver.Raw, error) {
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return fn()
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.statements = append(d.statements, sql)
	d.mu.Unlock()
	return nil
}

// Ready implements driver.Driver.
func (d *Driver) Ready() <-chan struct{} {
	d.mu.Lock()
	gate := d.readyGate
	d.mu.Unlock()
	if gate != nil {
		return gate
	}
	return d.batch.Ready()
}

// NextResult implements driver.Driver.
func (d *Driver) NextResult(ctx context.Context) (*driver.Raw, error) {
	return d.batch.Next(ctx)
}

// ServerVersion implements driver.Versioner. It fails with driver.ErrBusy
// while a dispatched batch has not been drained.
func (d *Driver) ServerVersion(ctx context.Context) (string, error) {
	d.mu.Lock()
	version := d.Version
	d.mu.Unlock()
	if err := d.batch.Start(func() ([]*driver.Raw, error) { return nil, nil }); err != nil {
		return "", err
	}
	if _, err := d.batch.Next(context.WithoutCancel(ctx)); err != nil {
		return "", err
	}
	return version, nil
}

// Close implements driver.Driver.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return driver.ErrClosed
	}
	d.closed = true
	return nil
}

var (
	_ driver.Driver    = (*Driver)(nil)
	_ driver.Versioner = (*Driver)(nil)
)

// Modified returns a StatusCommandOK result affecting n rows.
func Modified(n int64) *driver.Raw {
	return &driver.Raw{
		Status:       driver.StatusCommandOK,
		Tag:          fmt.Sprintf("UPDATE %d", n),
		RowsAffected: n,
	}
}

// Failed returns a StatusFatal result carrying msg.
func Failed(msg string) *driver.Raw {
	return &driver.Raw{Status: driver.StatusFatal, Err: errors.New(msg)}
}

// Tuples returns a StatusTuplesOK result over rows.
func Tuples(rows *Rows) *driver.Raw {
	n, _ := rows.NumRows()
	return &driver.Raw{
		Status: driver.StatusTuplesOK,
		Tag:    fmt.Sprintf("SELECT %d", n),
		Rows:   rows,
	}
}
