// Package queue provides the durable FIFO backing the event bus.
//
// The queue is an ordered list primitive: append to the tail, read the head,
// trim what was read. Head and Trim are deliberately separate statements; a
// crash between them delivers a batch twice, which consumers absorb via
// idempotent recomputation. A batch is never lost once appended.
package queue

import "context"

// Entry is one serialized event envelope in queue order.
type Entry struct {
	ID      uint64
	Payload []byte
}

// Queue is the durable FIFO contract used by the bus.
type Queue interface {
	// Append pushes payloads onto the tail in order.
	Append(ctx context.Context, payloads [][]byte) error

	// Head returns up to max entries from the head without removing them.
	Head(ctx context.Context, max int) ([]Entry, error)

	// Trim removes every entry with id <= upTo.
	Trim(ctx context.Context, upTo uint64) error

	// Len returns the current number of queued entries.
	Len(ctx context.Context) (int, error)
}
