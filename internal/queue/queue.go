// Package queue provides the batching write queue used by the GORM writer.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO that hands out items in batches.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Requeue puts items back at the head of the queue, ahead of anything pushed since
// they were taken.
func (q *Queue[T]) Requeue(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
}

// Take removes and returns up to max items from the head. max <= 0 takes everything.
func (q *Queue[T]) Take(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	if max <= 0 || max >= len(q.items) {
		out := q.items
		q.items = nil
		return out
	}
	out := make([]T, max)
	copy(out, q.items[:max])
	q.items = q.items[max:]
	return out
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
