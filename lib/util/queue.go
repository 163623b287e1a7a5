package util

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is a thread-safe, unbounded FIFO queue.
// Bounding the queue is a policy of the caller (see the queue limit checks in the
// transport engine), not of the queue itself.
//
// Thread-safety: All methods are mutually exclusive and safe for concurrent use.
type Queue[T any] struct {
	mu    sync.Mutex
	items *queue.Queue
}

// NewQueue creates a new empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{items: queue.New()}
}

// Enqueue appends an item to the end of the queue
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	q.items.Add(item)
	q.mu.Unlock()
}

// TryDequeue removes and returns the oldest item.
// The bool is false if the queue was empty.
func (q *Queue[T]) TryDequeue() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Length() == 0 {
		return item, false
	}
	return q.items.Remove().(T), true
}

// TryDequeueAll moves every item into the given slice (appending, oldest first) and
// returns true if at least one item was moved.
// The whole queue is drained under one lock, so a concurrent Enqueue either lands
// completely in this batch or completely in the next one.
func (q *Queue[T]) TryDequeueAll(into *[]T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Length()
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		*into = append(*into, q.items.Remove().(T))
	}
	return true
}

// Count returns the number of queued items
func (q *Queue[T]) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Clear removes all items
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	// drop the ring buffer so the references can be collected
	q.items = queue.New()
	q.mu.Unlock()
}
