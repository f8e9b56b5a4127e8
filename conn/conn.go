// Package conn manages one physical database link: nested transactions
// built on savepoints, and a pipeline that lets several goroutines submit
// statements while at most one is in flight.
package conn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"
	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/internal/debug"
	"github.com/satishbabariya/pgorm/sqltype"
)

// Conn is a connection over one driver.Driver. It is safe for use by several
// goroutines; their statements reach the database one at a time, in the
// order they obtained the wire.
type Conn struct {
	d   driver.Driver
	cfg config

	// txMu serializes Begin, Commit and Rollback.
	txMu sync.Mutex

	mu         sync.Mutex
	closed     bool
	inTx       bool
	savepoints []string
	state      PipelineState
	flight     *flight
	wireBusy   bool
	waiters    []chan struct{}
}

// New returns a connection owning d.
func New(d driver.Driver, opts ...Option) *Conn {
	cfg := config{interval: DefaultRescheduleInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.New().String()
	}
	return &Conn{d: d, cfg: cfg}
}

// ID returns the identifier attached to log records.
func (c *Conn) ID() string { return c.cfg.id }

// Driver returns the underlying driver.
func (c *Conn) Driver() driver.Driver { return c.d }

// Conn implements Provider.
func (c *Conn) Conn() *Conn { return c }

// Close waits for the statement on the wire, hands any suspended caller its
// result and closes the driver. Every later call fails with ErrClosed.
func (c *Conn) Close(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.acquire()
	defer c.release()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prior := c.flight
	c.mu.Unlock()

	if prior != nil {
		c.settle(ctx, prior)
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.log().Debug("close")
	if err := c.d.Close(ctx); err != nil {
		return fmt.Errorf("failed to close driver: %w", err)
	}
	return nil
}

// ServerVersion waits for the wire, hands any suspended caller its result
// and asks the driver for the server version.
func (c *Conn) ServerVersion(ctx context.Context) (string, error) {
	v, ok := c.d.(driver.Versioner)
	if !ok {
		return "", ErrNoVersion
	}
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	c.acquire()
	defer c.release()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	prior := c.flight
	c.mu.Unlock()

	if prior != nil {
		c.settle(ctx, prior)
	}
	return v.ServerVersion(ctx)
}

// QuoteIdentifier implements sqltype.Escaper.
func (c *Conn) QuoteIdentifier(name string) string {
	return c.d.QuoteIdentifier(name)
}

// QuoteLiteral implements sqltype.Escaper.
func (c *Conn) QuoteLiteral(s string) string {
	return c.d.QuoteLiteral(s)
}

// EscapeIdentifier quotes a table or column name.
func (c *Conn) EscapeIdentifier(name string) string {
	return sqltype.EscapeIdentifier(c, name)
}

// EscapeValue renders v as SQL literal text.
func (c *Conn) EscapeValue(v any) string {
	return sqltype.EscapeValue(c, v)
}

func (c *Conn) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Conn) log() *slog.Logger {
	l := c.cfg.logger
	if l == nil {
		l = debug.Logger()
	}
	return l.With("conn_id", c.cfg.id)
}

// fingerprint identifies a statement in log records without logging its
// text, which carries inlined values.
func fingerprint(sql string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(sql))
}

var _ sqltype.Escaper = (*Conn)(nil)
