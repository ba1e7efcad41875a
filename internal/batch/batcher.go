package batch

import (
	"context"
	"errors"
	"math"

	"golang.org/x/sync/semaphore"

	"github.com/rzbill/quill/internal/ring"
)

// Batcher coalesces producer wakeups over a ring so a consumer can sleep
// until work exists and then drain a bounded batch in one pass. One signal
// unit is released per successful enqueue and exactly one is consumed per
// Next call, so signal count and ring occupancy may drift apart under load; a
// Next that drains zero items is a legal spurious wake.
type Batcher[T any] struct {
	ring      *ring.Ring[T]
	wakeup    *semaphore.Weighted
	batchSize int
}

// New wraps an existing ring. batchSize must be at least 1.
func New[T any](r *ring.Ring[T], batchSize int) (*Batcher[T], error) {
	if r == nil {
		return nil, errors.New("batch: nil ring")
	}
	if batchSize < 1 {
		return nil, errors.New("batch: batch size must be >= 1")
	}
	// A weighted semaphore with its capacity taken up front acts as a
	// counting signal: Release hands back one unit per enqueue and Acquire
	// blocks while the count is zero. The capacity is large enough that the
	// signal count can never reach it.
	wakeup := semaphore.NewWeighted(math.MaxInt64)
	_ = wakeup.Acquire(context.Background(), math.MaxInt64)
	return &Batcher[T]{
		ring:      r,
		wakeup:    wakeup,
		batchSize: batchSize,
	}, nil
}

// BatchSize returns the drain bound.
func (b *Batcher[T]) BatchSize() int { return b.batchSize }

// Enqueue pushes item into the ring and signals the consumer. The push is
// what commits the item; once it succeeds the enqueue is reported as success
// regardless of signal delivery.
func (b *Batcher[T]) Enqueue(item T) error {
	if err := b.ring.Enqueue(item); err != nil {
		return err
	}
	b.wakeup.Release(1)
	return nil
}

// Next blocks until at least one signal unit is available (or ctx is done),
// consumes exactly one, then drains up to the batch size of ready items into
// dst without blocking further. It returns the drained items; a nil error
// with zero items is a spurious wake and the caller must re-check its own
// termination condition.
func (b *Batcher[T]) Next(ctx context.Context, dst []T) ([]T, error) {
	if err := b.wakeup.Acquire(ctx, 1); err != nil {
		return dst[:0], err
	}
	dst = dst[:0]
	for len(dst) < b.batchSize {
		item, err := b.ring.Dequeue()
		if err != nil {
			break
		}
		dst = append(dst, item)
	}
	return dst, nil
}

// TryDequeue pops one ready item without consuming a signal or blocking.
// Meant for shutdown paths that drain leftovers after the consumer stopped.
func (b *Batcher[T]) TryDequeue() (T, bool) {
	item, err := b.ring.Dequeue()
	return item, err == nil
}

// Wake releases one signal unit without enqueuing anything. An exiting
// consumer calls it so siblings blocked in Next re-check their termination
// condition; the resulting empty drain is indistinguishable from a spurious
// wake.
func (b *Batcher[T]) Wake() { b.wakeup.Release(1) }

// Empty reports whether the ring-count snapshot is zero.
func (b *Batcher[T]) Empty() bool { return b.ring.Len() == 0 }
