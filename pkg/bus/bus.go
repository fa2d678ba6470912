package bus

import (
	"context"
	"sync"
)

// Queue is an unbounded multi-producer, single-consumer FIFO.
//
// Publish never blocks. Items published by one producer are consumed in the
// order they were published; there is no ordering across producers beyond
// the order in which their Publish calls acquired the lock.
type Queue[T any] struct {
	wake chan struct{}
	done chan struct{}

	closeOnce sync.Once

	mu     sync.Mutex
	items  []T
	closed bool
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Publish appends item to the queue. It returns false once the queue is closed.
func (q *Queue[T]) Publish(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)
	select {
	case q.wake <- struct{}{}:
	default:
	}

	return true
}

// Consume blocks until an item is available. It returns false when ctx ends
// or when the queue is closed and every published item has been consumed.
func (q *Queue[T]) Consume(ctx context.Context) (T, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, false
		}

		select {
		case <-ctx.Done():
			return zero, false
		case <-q.wake:
		case <-q.done:
		}
	}
}

// Len reports the number of items waiting to be consumed.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting new items. Items already queued remain consumable.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}
