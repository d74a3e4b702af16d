// ABOUTME: Batch groups operations and fires one completion signal when all finish
// ABOUTME: A sequencing aggregator with first-error retention, not a transaction

package cryptostore

import (
	"context"
	"sync"
)

// Batch groups an arbitrary number of operations and settles once, when
// every grouped operation has finished, carrying the first error if any
// occurred.
//
// Batch is NOT a transaction. It provides no atomicity, no isolation
// from other batches touching the same backend, and no rollback of
// operations that completed before a later one failed. The only
// guarantee is completion aggregation: "every operation I grouped has
// finished, and here is whether any failed."
//
// A batch holds its registration open until Close or Wait, so it cannot
// settle between two Execute calls. Calling Execute after the batch has
// settled is a programming error and panics.
type Batch struct {
	mu      sync.Mutex
	pending int
	open    bool
	settled bool
	err     error
	done    chan struct{}
}

// NewBatch returns an open batch ready to accept operations.
func NewBatch() *Batch {
	return &Batch{
		// The registration hold counts as one pending unit until Close.
		pending: 1,
		open:    true,
		done:    make(chan struct{}),
	}
}

// Execute runs op as part of the batch. The first failing operation's
// error is retained; later errors are dropped. Execute may be called
// from any goroutine while the batch is unsettled; calling it on a nil
// or settled batch panics.
func (b *Batch) Execute(op func() error) {
	if b == nil {
		panic("cryptostore: Execute on nil Batch")
	}
	b.track()
	b.complete(op())
}

func (b *Batch) track() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.settled {
		panic("cryptostore: Execute on settled Batch")
	}
	b.pending++
}

func (b *Batch) complete(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && b.err == nil {
		b.err = err
	}
	b.pending--
	if b.pending == 0 {
		b.settled = true
		close(b.done)
	}
}

// Close releases the registration hold. Once every in-flight operation
// finishes the batch settles; a batch with no operations settles
// immediately. Close is idempotent.
func (b *Batch) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return
	}
	b.open = false
	b.pending--
	if b.pending == 0 {
		b.settled = true
		close(b.done)
	}
}

// Wait closes the batch and blocks until it settles or ctx is done. It
// returns the batch's first error, or ctx.Err() if the context expired
// first.
func (b *Batch) Wait(ctx context.Context) error {
	b.Close()
	select {
	case <-b.done:
		return b.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the batch settles.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Err returns the first recorded error. It is only meaningful after the
// batch has settled.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
