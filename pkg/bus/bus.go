// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

package bus

import (
	"context"
	"sync"
)

const DefaultQueueSize = 100

// EventQueue hands inbound events from the poll loop to the workers.
type EventQueue struct {
	inbound chan InboundEvent
	closed  bool
	mu      sync.RWMutex
}

func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &EventQueue{
		inbound: make(chan InboundEvent, size),
	}
}

// Publish blocks while the queue is full. It returns false when ctx is done
// or the queue was closed.
func (q *EventQueue) Publish(ctx context.Context, ev InboundEvent) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.inbound <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Consume returns the next event. ok is false once the queue is closed and
// drained, or when ctx is done.
func (q *EventQueue) Consume(ctx context.Context) (InboundEvent, bool) {
	select {
	case <-ctx.Done():
		return InboundEvent{}, false
	default:
	}
	select {
	case ev, ok := <-q.inbound:
		if !ok {
			return InboundEvent{}, false
		}
		return ev, true
	case <-ctx.Done():
		return InboundEvent{}, false
	}
}

func (q *EventQueue) Len() int {
	return len(q.inbound)
}

func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.inbound)
}
