package ring

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrFull is returned by Enqueue when no slot is free. Callers decide
	// whether to retry; the ring itself never blocks.
	ErrFull = errors.New("ring: full")
	// ErrEmpty is returned by Dequeue when no slot is ready.
	ErrEmpty = errors.New("ring: empty")
)

// slot pairs an item with its published sequence. A slot is writable by a
// producer when seq == pos and readable by a consumer when seq == pos+1.
type slot[T any] struct {
	seq  atomic.Uint64
	item T
}

// Ring is a fixed-capacity lock-free bounded queue safe for multiple
// producers and multiple consumers. Ownership of enqueued items transfers
// producer -> ring -> consumer; the ring never inspects them.
type Ring[T any] struct {
	mask  uint64
	slots []slot[T]

	head atomic.Uint64
	_    [56]byte // keep head and tail on separate cache lines
	tail atomic.Uint64
}

// New creates a ring with the given capacity, which must be a power of two
// and at least 2.
func New[T any](capacity uint64) (*Ring[T], error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a power of two >= 2", capacity)
	}
	r := &Ring[T]{
		mask:  capacity - 1,
		slots: make([]slot[T], capacity),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r, nil
}

// Capacity returns the fixed slot count.
func (r *Ring[T]) Capacity() uint64 { return r.mask + 1 }

// Enqueue attempts to push item without blocking. It returns ErrFull when the
// next slot is still held by a lagging consumer.
func (r *Ring[T]) Enqueue(item T) error {
	for {
		tail := r.tail.Load()
		s := &r.slots[tail&r.mask]
		diff := int64(s.seq.Load()) - int64(tail)
		if diff == 0 {
			if r.tail.CompareAndSwap(tail, tail+1) {
				s.item = item
				s.seq.Store(tail + 1)
				return nil
			}
			continue
		}
		if diff < 0 {
			return ErrFull
		}
		// A competing producer advanced tail past our snapshot; reload.
	}
}

// Dequeue attempts to pop the oldest item without blocking. It returns
// ErrEmpty when no slot has been published yet.
func (r *Ring[T]) Dequeue() (T, error) {
	var zero T
	for {
		head := r.head.Load()
		s := &r.slots[head&r.mask]
		diff := int64(s.seq.Load()) - int64(head+1)
		if diff == 0 {
			if r.head.CompareAndSwap(head, head+1) {
				item := s.item
				s.item = zero
				// Hand the slot to the next wrap of producers.
				s.seq.Store(head + r.mask + 1)
				return item, nil
			}
			continue
		}
		if diff < 0 {
			return zero, ErrEmpty
		}
	}
}

// PeekAt returns the k-th ready item counted from the head without consuming
// it. The result is best-effort under concurrency and must only be used for
// inspection, never to mutate slot state.
func (r *Ring[T]) PeekAt(k uint64) (T, bool) {
	var zero T
	pos := r.head.Load() + k
	s := &r.slots[pos&r.mask]
	if s.seq.Load() != pos+1 {
		return zero, false
	}
	return s.item, true
}

// Len reports a racy snapshot of the occupied slot count, for diagnostics
// only.
func (r *Ring[T]) Len() uint64 {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail < head {
		return 0
	}
	return tail - head
}
