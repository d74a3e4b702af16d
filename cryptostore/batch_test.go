package cryptostore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_ZeroOpsSettlesOnClose(t *testing.T) {
	b := NewBatch()
	b.Close()

	select {
	case <-b.Done():
	default:
		t.Fatal("empty batch did not settle on Close")
	}
	assert.NoError(t, b.Err())
}

func TestBatch_WaitReturnsNilOnSuccess(t *testing.T) {
	b := NewBatch()
	ran := 0
	b.Execute(func() error { ran++; return nil })
	b.Execute(func() error { ran++; return nil })

	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, 2, ran)
}

func TestBatch_FirstErrorWins(t *testing.T) {
	errFirst := errors.New("first failure")
	errSecond := errors.New("second failure")

	b := NewBatch()
	b.Execute(func() error { return nil })
	b.Execute(func() error { return errFirst })
	b.Execute(func() error { return errSecond })

	err := b.Wait(context.Background())
	assert.ErrorIs(t, err, errFirst)
	assert.NotErrorIs(t, err, errSecond)
}

func TestBatch_DoesNotSettleBetweenOperations(t *testing.T) {
	// The registration hold keeps an open batch from settling after an
	// operation finishes, so a later Execute is still legal.
	b := NewBatch()
	b.Execute(func() error { return nil })

	select {
	case <-b.Done():
		t.Fatal("batch settled while still open")
	default:
	}

	b.Execute(func() error { return nil })
	require.NoError(t, b.Wait(context.Background()))
}

func TestBatch_ExecuteAfterSettlePanics(t *testing.T) {
	b := NewBatch()
	b.Execute(func() error { return nil })
	require.NoError(t, b.Wait(context.Background()))

	assert.Panics(t, func() {
		b.Execute(func() error { return nil })
	})
}

func TestBatch_ExecuteOnNilBatchPanics(t *testing.T) {
	var b *Batch
	assert.Panics(t, func() {
		b.Execute(func() error { return nil })
	})
}

func TestBatch_CloseIdempotent(t *testing.T) {
	b := NewBatch()
	b.Close()
	b.Close()
	assert.NoError(t, b.Wait(context.Background()))
}

func TestBatch_WaitHonorsContext(t *testing.T) {
	b := NewBatch()

	// An operation that never finishes keeps the batch from settling;
	// Wait must still return when the context expires.
	release := make(chan struct{})
	go b.Execute(func() error {
		<-release
		return nil
	})

	// Give the goroutine time to register.
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestBatch_ConcurrentExecute(t *testing.T) {
	b := NewBatch()

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Execute(func() error {
				mu.Lock()
				ran++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, 16, ran)
}
