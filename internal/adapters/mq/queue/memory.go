package queue

import (
	"context"
	"sync"
)

// InMemoryQueue implements Queue without a store. Used in tests and
// single-process experiments; it keeps the same head/trim semantics as the
// durable implementation.
type InMemoryQueue struct {
	mu      sync.Mutex
	nextID  uint64
	entries []Entry

	// FailNext forces the next Head to fail, for error-path tests.
	FailNext error
}

// NewInMemoryQueue creates an empty in-memory queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{nextID: 1}
}

// Append pushes payloads onto the tail in order.
func (q *InMemoryQueue) Append(_ context.Context, payloads [][]byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range payloads {
		cp := make([]byte, len(p))
		copy(cp, p)
		q.entries = append(q.entries, Entry{ID: q.nextID, Payload: cp})
		q.nextID++
	}
	return nil
}

// Head returns up to max entries from the head without removing them.
func (q *InMemoryQueue) Head(_ context.Context, max int) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.FailNext != nil {
		err := q.FailNext
		q.FailNext = nil
		return nil, err
	}
	if max <= 0 || len(q.entries) == 0 {
		return nil, nil
	}
	if max > len(q.entries) {
		max = len(q.entries)
	}
	out := make([]Entry, max)
	copy(out, q.entries[:max])
	return out, nil
}

// Trim removes every entry with id <= upTo.
func (q *InMemoryQueue) Trim(_ context.Context, upTo uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := 0
	for i < len(q.entries) && q.entries[i].ID <= upTo {
		i++
	}
	q.entries = q.entries[i:]
	return nil
}

// Len returns the current number of queued entries.
func (q *InMemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries), nil
}
