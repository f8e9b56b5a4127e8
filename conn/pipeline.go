package conn

import (
	"context"
	"time"

	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/result"
)

// PipelineState is the state of the query pipeline.
type PipelineState int

const (
	// PipelineIdle means no statement is awaiting its owner.
	PipelineIdle PipelineState = iota
	// PipelineAwaitingDispatch means a statement was dispatched and its
	// caller is suspended.
	PipelineAwaitingDispatch
	// PipelineDraining means the owner of a dispatched statement resumed and
	// is reading its results.
	PipelineDraining
)

func (s PipelineState) String() string {
	switch s {
	case PipelineIdle:
		return "idle"
	case PipelineAwaitingDispatch:
		return "awaiting_dispatch"
	case PipelineDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// flight is a dispatched statement whose caller is suspended. A caller that
// finds it on the wire drains it and leaves the outcome in the pending slot.
type flight struct {
	stmt string
	done bool
	res  result.Result
	err  error
}

// PipelineStatus returns the current pipeline state.
func (c *Conn) PipelineStatus() PipelineState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Query executes sql and returns the outcome of its last statement.
//
// With the pipeline idle the statement is dispatched and the caller suspends
// until the driver reports the results ready or the reschedule interval
// passes, then queues for the wire again to drain. A caller that finds a
// dispatched statement awaiting its owner first drains that statement into
// its owner's pending slot and then runs sql synchronously.
func (c *Conn) Query(ctx context.Context, sql string) (result.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.acquire()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.release()
		return nil, ErrClosed
	}
	prior := c.flight
	c.mu.Unlock()

	if prior != nil {
		c.settle(ctx, prior)
		res, err := c.execSync(ctx, sql)
		c.release()
		return res, err
	}

	log := c.log()
	if err := c.dispatch(ctx, sql); err != nil {
		c.release()
		log.Debug("dispatch failed", "stmt", fingerprint(sql), "error", err)
		return nil, &ConnError{Op: "dispatch", Cause: err}
	}
	f := &flight{stmt: sql}
	c.mu.Lock()
	c.state = PipelineAwaitingDispatch
	c.flight = f
	c.mu.Unlock()
	log.Debug("dispatch", "stmt", fingerprint(sql), "state", PipelineAwaitingDispatch)
	c.release()

	c.suspend()

	c.acquire()
	defer c.release()

	c.mu.Lock()
	if f.done {
		c.mu.Unlock()
		log.Debug("resume from pending slot", "stmt", fingerprint(sql))
		return f.res, f.err
	}
	c.state = PipelineDraining
	c.mu.Unlock()

	res, err := c.drainLast(ctx)

	c.mu.Lock()
	c.state = PipelineIdle
	c.flight = nil
	c.mu.Unlock()
	log.Debug("drained", "stmt", fingerprint(sql), "state", PipelineIdle)
	return res, err
}

// MultiQuery executes a batch and returns the outcome of every statement in
// order. It fails with ErrRequestInFlight unless the pipeline is idle.
func (c *Conn) MultiQuery(ctx context.Context, sql string) ([]result.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.PipelineStatus() != PipelineIdle {
		return nil, ErrRequestInFlight
	}
	c.acquire()
	defer c.release()

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.state != PipelineIdle:
		c.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	c.mu.Unlock()

	log := c.log()
	if err := c.dispatch(ctx, sql); err != nil {
		return nil, &ConnError{Op: "dispatch", Cause: err}
	}
	c.setState(PipelineAwaitingDispatch)
	log.Debug("dispatch batch", "stmt", fingerprint(sql), "state", PipelineAwaitingDispatch)

	<-c.d.Ready()
	c.setState(PipelineDraining)
	raws, err := c.drainAll(ctx)
	c.setState(PipelineIdle)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, &ConnError{Op: "drain", Cause: errNoResult}
	}

	out := make([]result.Result, 0, len(raws))
	for _, raw := range raws {
		res, err := result.New(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	log.Debug("drained batch", "stmt", fingerprint(sql), "results", len(out))
	return out, nil
}

// Exec executes a statement that returns no row set and reports the number
// of affected rows.
func (c *Conn) Exec(ctx context.Context, sql string) (int64, error) {
	res, err := c.Query(ctx, sql)
	if err != nil {
		return 0, err
	}
	m, ok := res.(result.ModifyResult)
	if !ok {
		return 0, ErrReturnedRows
	}
	return m.AffectedRows, nil
}

// settle drains a suspended caller's statement into its pending slot. The
// caller must own the wire.
func (c *Conn) settle(ctx context.Context, f *flight) {
	res, err := c.drainLast(ctx)

	c.mu.Lock()
	f.res, f.err, f.done = res, err, true
	c.flight = nil
	c.state = PipelineIdle
	c.mu.Unlock()
	c.log().Debug("settled in-flight statement", "stmt", fingerprint(f.stmt), "state", PipelineIdle)
}

// execSync dispatches sql and drains it while keeping the wire.
func (c *Conn) execSync(ctx context.Context, sql string) (result.Result, error) {
	if err := c.dispatch(ctx, sql); err != nil {
		return nil, &ConnError{Op: "dispatch", Cause: err}
	}
	c.log().Debug("dispatch sync", "stmt", fingerprint(sql))
	return c.drainLast(ctx)
}

// dispatch sends sql to the driver. A dispatched statement runs to completion
// regardless of the caller's context.
func (c *Conn) dispatch(ctx context.Context, sql string) error {
	return c.d.Dispatch(context.WithoutCancel(ctx), sql)
}

// drainLast drains every result of the dispatched batch and classifies the
// last one.
func (c *Conn) drainLast(ctx context.Context) (result.Result, error) {
	raws, err := c.drainAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, &ConnError{Op: "drain", Cause: errNoResult}
	}
	return result.New(raws[len(raws)-1])
}

// drainAll reads results until the driver reports the batch drained. A
// dispatched batch is always read to the end, so cancellation of ctx does
// not apply here.
func (c *Conn) drainAll(ctx context.Context) ([]*driver.Raw, error) {
	ctx = context.WithoutCancel(ctx)
	var raws []*driver.Raw
	for {
		raw, err := c.d.NextResult(ctx)
		if err != nil {
			return nil, &ConnError{Op: "drain", Cause: err}
		}
		if raw == nil {
			return raws, nil
		}
		raws = append(raws, raw)
	}
}

// suspend waits for the dispatched batch to become ready, at most one
// reschedule interval.
func (c *Conn) suspend() {
	timer := time.NewTimer(c.cfg.interval)
	defer timer.Stop()
	select {
	case <-c.d.Ready():
	case <-timer.C:
	}
}

func (c *Conn) setState(s PipelineState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// acquire takes ownership of the wire, queueing behind earlier callers.
func (c *Conn) acquire() {
	c.mu.Lock()
	if !c.wireBusy {
		c.wireBusy = true
		c.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()
	<-ch
}

// release hands the wire to the oldest waiter, if any.
func (c *Conn) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) > 0 {
		next := c.waiters[0]
		c.waiters = c.waiters[1:]
		close(next)
		return
	}
	c.wireBusy = false
}
