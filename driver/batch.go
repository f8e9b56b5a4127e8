package driver

import (
	"context"
	"sync"
)

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Batch runs one statement batch at a time on its own goroutine and hands
// out the results in order. Drivers whose client library blocks embed it to
// provide Dispatch, Ready and NextResult.
type Batch struct {
	mu      sync.Mutex
	ready   chan struct{}
	results []*Raw
	err     error
	active  bool
}

// Start runs fn on a new goroutine. It fails with ErrBusy while the results
// of the previous batch have not been drained.
func (b *Batch) Start(fn func() ([]*Raw, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return ErrBusy
	}
	b.active = true
	b.results = nil
	b.err = nil
	ready := make(chan struct{})
	b.ready = ready

	go func() {
		results, err := fn()
		b.mu.Lock()
		b.results = results
		b.err = err
		b.mu.Unlock()
		close(ready)
	}()
	return nil
}

// Ready returns a channel closed once the running batch has finished. With no
// batch running the channel is already closed.
func (b *Batch) Ready() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return closedChan
	}
	return b.ready
}

// Next waits for the batch to finish and returns its next result, or
// (nil, nil) once every result has been handed out.
func (b *Batch) Next(ctx context.Context) (*Raw, error) {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return nil, nil
	}
	ready := b.ready
	b.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		err := b.err
		b.reset()
		return nil, err
	}
	if len(b.results) == 0 {
		b.reset()
		return nil, nil
	}
	r := b.results[0]
	b.results = b.results[1:]
	return r, nil
}

// Wait blocks until the running batch, if any, has finished.
func (b *Batch) Wait() {
	<-b.Ready()
}

func (b *Batch) reset() {
	b.active = false
	b.results = nil
	b.err = nil
}
