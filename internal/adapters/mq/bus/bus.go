// Package bus decouples event producers from challenge consumers.
//
// Events dispatched by producers accumulate in an owned in-process buffer
// and reach the durable queue only on Flush, so a producing job that fails
// before committing never leaves its events durably queued. ProcessEvents
// pops from the head before delivering, giving at-least-once semantics:
// a crash mid-delivery can replay a batch but never wedges the queue.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/soundvine/rewards/internal/adapters/mq/queue"
	"github.com/soundvine/rewards/internal/domain/model"
	"github.com/soundvine/rewards/pkg/logger"
	"github.com/soundvine/rewards/pkg/metrics"
)

const defaultBufferCapacity = 10_000

// Listener consumes a batch of events of a single kind.
type Listener interface {
	// Name identifies the listener in logs and metrics.
	Name() string

	// Process handles events in dequeue order. Errors are isolated by the
	// bus; returning one never blocks sibling listeners.
	Process(ctx context.Context, events []model.Event) error
}

// Bus buffers, persists and fans out events.
type Bus struct {
	mu        sync.Mutex
	buffer    []model.Event
	capacity  int
	durable   queue.Queue
	listeners map[model.EventKind][]Listener
	logger    logger.Logger
}

// New creates a bus over the given durable queue.
func New(durable queue.Queue, opts ...Option) *Bus {
	b := &Bus{
		capacity:  defaultBufferCapacity,
		durable:   durable,
		listeners: make(map[model.EventKind][]Listener),
		logger:    logger.Get().Named("bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterListener associates a listener with an event kind. A listener may
// listen to several kinds and several listeners may share a kind.
// Registering the same pair twice is a no-op.
func (b *Bus) RegisterListener(kind model.EventKind, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.listeners[kind] {
		if existing.Name() == l.Name() {
			return
		}
	}
	b.listeners[kind] = append(b.listeners[kind], l)
}

// Dispatch validates an event and appends it to the in-process buffer.
// Malformed events are dropped with a warning: producers must never be
// blocked by bad telemetry.
func (b *Bus) Dispatch(ctx context.Context, kind model.EventKind, blockNumber, userID int64, extra model.Extra) {
	e := model.Event{Kind: kind, UserID: userID, BlockNumber: blockNumber, Extra: extra}
	if err := e.Validate(); err != nil {
		metrics.RecordEventDropped("invalid")
		b.logger.Warn(ctx, "dropping malformed event",
			logger.String("kind", string(kind)),
			logger.Int64("user_id", userID),
			logger.Int64("block_number", blockNumber),
			logger.Error(err),
		)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buffer) >= b.capacity {
		metrics.RecordEventDropped("buffer_full")
		b.logger.Warn(ctx, "dispatch buffer full, dropping event",
			logger.String("kind", string(kind)),
		)
		return
	}
	b.buffer = append(b.buffer, e)
	metrics.RecordEventPublished(string(kind))
}

// Flush serializes buffered events to the durable queue tail and clears the
// buffer. The buffer is cleared only after a successful append, so a store
// outage keeps events for the next flush.
func (b *Bus) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	payloads := make([][]byte, 0, len(pending))
	for _, e := range pending {
		raw, err := model.MarshalEvent(uuid.NewString(), e)
		if err != nil {
			metrics.RecordEventDropped("marshal")
			b.logger.Warn(ctx, "dropping unserializable event",
				logger.String("kind", string(e.Kind)),
				logger.Error(err),
			)
			continue
		}
		payloads = append(payloads, raw)
	}

	if err := b.durable.Append(ctx, payloads); err != nil {
		b.mu.Lock()
		b.buffer = append(pending, b.buffer...)
		b.mu.Unlock()
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Scope runs fn and flushes exactly once on every exit path, including
// panics. This is the unit producers wrap around a block-processing pass.
func (b *Bus) Scope(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if ferr := b.Flush(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}()
	return fn(ctx)
}

// ProcessEvents pops up to max events from the durable queue head and
// delivers them, grouped by kind in dequeue order, to every registered
// listener. One listener's failure never blocks siblings or other kinds.
//
// Returns the number of events delivered. If the pop or decode step itself
// fails the whole call returns (-1, err) and nothing is processed.
func (b *Bus) ProcessEvents(ctx context.Context, max int) (int, error) {
	entries, err := b.durable.Head(ctx, max)
	if err != nil {
		return -1, fmt.Errorf("process events: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	// Decode before trimming: a corrupt payload or unavailable store leaves
	// the queue untouched for a later retry.
	events := make([]model.Event, 0, len(entries))
	for _, entry := range entries {
		e, derr := model.UnmarshalEvent(entry.Payload)
		if derr != nil {
			return -1, fmt.Errorf("process events: entry %d: %w", entry.ID, derr)
		}
		events = append(events, e)
	}

	// Trim before delivery. From here the batch is owned by this cycle; a
	// crash mid-delivery can lose delivery to some listeners but the queue
	// never reprocesses a stuck batch forever.
	if err := b.durable.Trim(ctx, entries[len(entries)-1].ID); err != nil {
		return -1, fmt.Errorf("process events: %w", err)
	}

	// Group by kind, keeping FIFO order within each kind.
	order := make([]model.EventKind, 0, len(events))
	byKind := make(map[model.EventKind][]model.Event)
	for _, e := range events {
		if _, seen := byKind[e.Kind]; !seen {
			order = append(order, e.Kind)
		}
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	b.mu.Lock()
	registered := make(map[model.EventKind][]Listener, len(b.listeners))
	for k, ls := range b.listeners {
		registered[k] = append([]Listener(nil), ls...)
	}
	b.mu.Unlock()

	for _, kind := range order {
		batch := byKind[kind]
		for _, l := range registered[kind] {
			b.deliver(ctx, kind, l, batch)
		}
	}

	metrics.UpdateQueueDepth(b.queueDepth(ctx))
	for range events {
		metrics.RecordEventProcessed()
	}
	return len(events), nil
}

// deliver invokes one listener with panic recovery so a misbehaving manager
// cannot take down the drain cycle.
func (b *Bus) deliver(ctx context.Context, kind model.EventKind, l Listener, batch []model.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordManagerFailure(l.Name())
			b.logger.Error(ctx, "listener panicked",
				logger.String("listener", l.Name()),
				logger.String("kind", string(kind)),
				logger.Any("panic", r),
			)
		}
	}()
	if err := l.Process(ctx, batch); err != nil {
		metrics.RecordManagerFailure(l.Name())
		b.logger.Error(ctx, "listener failed",
			logger.String("listener", l.Name()),
			logger.String("kind", string(kind)),
			logger.Int("events", len(batch)),
			logger.Error(err),
		)
	}
}

// BufferLen returns the number of events waiting for the next flush.
func (b *Bus) BufferLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

func (b *Bus) queueDepth(ctx context.Context) int {
	n, err := b.durable.Len(ctx)
	if err != nil {
		return 0
	}
	return n
}
