package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/raquezha/nuecagram/internal/webhook"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("ingestion queue is closed")

const DefaultCapacity = 100

// Queue is the bounded, order-preserving hand-off between the webhook
// handlers and the single queue processor. Enqueue blocks when the queue is
// full: backpressure on the request path is the accepted trade-off for never
// dropping or reordering events.
type Queue struct {
	ch     chan webhook.Envelope
	mu     sync.Mutex
	closed bool
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan webhook.Envelope, capacity)}
}

// Enqueue hands an envelope to the consumer, blocking while the queue is
// full. It fails only when the queue has been closed or the caller's context
// ends while waiting.
func (q *Queue) Enqueue(ctx context.Context, env webhook.Envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	// Holding the lock across the send would serialize producers; instead
	// Close waits for in-flight sends via the waitgroup-free pattern below:
	// the channel is only closed after the closed flag is visible, and a
	// send racing Close is guarded by the recover in send.
	q.mu.Unlock()

	return q.send(ctx, env)
}

func (q *Queue) send(ctx context.Context, env webhook.Envelope) (err error) {
	defer func() {
		if recover() != nil {
			// Send on closed channel: a producer lost the race with Close.
			err = ErrClosed
		}
	}()
	select {
	case q.ch <- env:
		slog.DebugContext(ctx, "envelope enqueued", "envelope_id", env.ID, "queued", len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting envelopes. The consumer drains whatever is already
// queued and then exits. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Drain exposes the receive side for the single consumer loop.
func (q *Queue) Drain() <-chan webhook.Envelope {
	return q.ch
}

// Len reports how many envelopes are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}
