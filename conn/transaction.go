package conn

import (
	"context"
	"errors"
	"fmt"
)

// TxState is the transaction state of a connection.
type TxState int

const (
	// TxIdle means no transaction is open.
	TxIdle TxState = iota
	// TxInTransaction means a transaction is open with no savepoint.
	TxInTransaction
	// TxInSavepoint means at least one savepoint is open.
	TxInSavepoint
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxInTransaction:
		return "in_transaction"
	case TxInSavepoint:
		return "in_savepoint"
	default:
		return "unknown"
	}
}

// TxStatus returns the transaction state and the savepoint depth.
func (c *Conn) TxStatus() (TxState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txStatusLocked()
}

func (c *Conn) txStatusLocked() (TxState, int) {
	switch {
	case !c.inTx:
		return TxIdle, 0
	case len(c.savepoints) == 0:
		return TxInTransaction, 0
	default:
		return TxInSavepoint, len(c.savepoints)
	}
}

// Begin opens a transaction, or a savepoint when one is already open.
func (c *Conn) Begin(ctx context.Context) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()

	c.mu.Lock()
	state, depth := c.txStatusLocked()
	c.mu.Unlock()

	if state == TxIdle {
		if _, err := c.Query(ctx, "BEGIN"); err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		c.mu.Lock()
		c.inTx = true
		c.mu.Unlock()
		c.log().Debug("begin", "state", TxInTransaction)
		return nil
	}

	name := fmt.Sprintf("sp_%d", depth+1)
	if _, err := c.Query(ctx, "SAVEPOINT "+c.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	c.mu.Lock()
	c.savepoints = append(c.savepoints, name)
	c.mu.Unlock()
	c.log().Debug("savepoint", "name", name, "depth", depth+1)
	return nil
}

// Commit releases the innermost savepoint, or commits the transaction when
// none is open. It does nothing outside a transaction.
func (c *Conn) Commit(ctx context.Context) error {
	return c.finish(ctx, "COMMIT", "RELEASE SAVEPOINT ")
}

// Rollback rolls back to the innermost savepoint, or rolls back the
// transaction when none is open. It does nothing outside a transaction.
func (c *Conn) Rollback(ctx context.Context) error {
	return c.finish(ctx, "ROLLBACK", "ROLLBACK TO SAVEPOINT ")
}

func (c *Conn) finish(ctx context.Context, txStmt, spPrefix string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.txMu.Lock()
	defer c.txMu.Unlock()

	c.mu.Lock()
	state, depth := c.txStatusLocked()
	var name string
	if depth > 0 {
		name = c.savepoints[depth-1]
	}
	c.mu.Unlock()

	switch state {
	case TxIdle:
		return nil
	case TxInTransaction:
		if _, err := c.Query(ctx, txStmt); err != nil {
			return fmt.Errorf("%s: %w", txStmt, err)
		}
		c.mu.Lock()
		c.inTx = false
		c.mu.Unlock()
		c.log().Debug(txStmt, "state", TxIdle)
		return nil
	default:
		if _, err := c.Query(ctx, spPrefix+c.QuoteIdentifier(name)); err != nil {
			return fmt.Errorf("%s%s: %w", spPrefix, name, err)
		}
		c.mu.Lock()
		c.savepoints = c.savepoints[:depth-1]
		c.mu.Unlock()
		c.log().Debug(spPrefix+name, "depth", depth-1)
		return nil
	}
}

// InTransaction runs fn inside a transaction, or a savepoint when one is
// already open. If fn returns an error or panics the transaction is rolled
// back and the error returned or the panic resumed; otherwise it is
// committed.
func (c *Conn) InTransaction(ctx context.Context, fn func(ctx context.Context, c *Conn) error) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}

	returned := false
	defer func() {
		if returned {
			return
		}
		if p := recover(); p != nil {
			_ = c.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, c); err != nil {
		returned = true
		if rbErr := c.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	returned = true
	return c.Commit(ctx)
}
