package bus

import (
	"context"
	"sync/atomic"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

// Queue is the bounded, non-blocking hand-off between the feed goroutine
// and the decision loop. Publishing never blocks the transport: when the
// consumer falls behind, events are dropped at the edge instead.
type Queue struct {
	ch      chan *model.MarketEvent
	closed  uint32
	dropped atomic.Int64
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan *model.MarketEvent, capacity)}
}

// TryPublish enqueues an event without blocking. Returns false when the
// queue is full or closed.
func (q *Queue) TryPublish(ev *model.MarketEvent) bool {
	if atomic.LoadUint32(&q.closed) != 0 {
		return false
	}
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of events rejected because the queue was
// full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops the queue from accepting new events. Pending events still
// drain through Run.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed
// and drained.
func (q *Queue) Run(ctx context.Context, handler func(*model.MarketEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-q.ch:
			if !ok {
				return
			}
			handler(ev)
		}
	}
}
