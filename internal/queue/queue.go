// Package queue provides the FIFO containers backing the outbound frame queue and the
// per-selector pending request queues.
//
// The queues are not safe for concurrent use: each one is owned by a single goroutine.
package queue

// Queue defines a first-in first-out container.
type Queue[T any] interface {
	// Enqueue adds an item to the tail of the queue.
	Enqueue(item T)
	// Dequeue removes and returns the item at the head of the queue.
	// The second result is false when the queue is empty.
	Dequeue() (T, bool)
	// Peek returns the item at the head of the queue without removing it.
	Peek() (T, bool)
	// Drain removes every item and returns them in queue order.
	Drain() []T
	// Reset empties the queue.
	Reset()
	// IsEmpty returns true if the queue is empty, false otherwise.
	IsEmpty() bool
	// Length returns the number of items in the queue.
	Length() int
}
