package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueuePublishConsume(t *testing.T) {
	q := NewEventQueue(2)
	ctx := context.Background()

	require.True(t, q.Publish(ctx, InboundEvent{EventID: 1, Payload: TextPayload{RawText: "hi"}}))
	require.True(t, q.Publish(ctx, InboundEvent{EventID: 2, Payload: PhotoPayload{FileID: "F1"}}))
	assert.Equal(t, 2, q.Len())

	ev, ok := q.Consume(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(1), ev.EventID)
	assert.Equal(t, KindText, ev.Kind())

	ev, ok = q.Consume(ctx)
	require.True(t, ok)
	assert.Equal(t, KindPhoto, ev.Kind())
}

func TestEventQueuePublishRespectsContextWhenFull(t *testing.T) {
	q := NewEventQueue(1)
	require.True(t, q.Publish(context.Background(), InboundEvent{EventID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, q.Publish(ctx, InboundEvent{EventID: 2}))
}

func TestEventQueueClose(t *testing.T) {
	q := NewEventQueue(4)
	ctx := context.Background()
	require.True(t, q.Publish(ctx, InboundEvent{EventID: 1}))
	q.Close()
	q.Close()

	assert.False(t, q.Publish(ctx, InboundEvent{EventID: 2}))

	ev, ok := q.Consume(ctx)
	require.True(t, ok, "queued events drain after close")
	assert.Equal(t, int64(1), ev.EventID)

	_, ok = q.Consume(ctx)
	assert.False(t, ok)
}

func TestEventQueueConsumeCancelled(t *testing.T) {
	q := NewEventQueue(1)
	require.True(t, q.Publish(context.Background(), InboundEvent{EventID: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := q.Consume(ctx)
	assert.False(t, ok)
}

func TestInboundEventKind(t *testing.T) {
	assert.Equal(t, KindOther, InboundEvent{}.Kind())
	assert.Equal(t, KindOther, InboundEvent{Payload: OtherPayload{}}.Kind())
	assert.True(t, MessageHandle{}.IsZero())
	assert.False(t, MessageHandle{ChatID: 1, MessageID: 5}.IsZero())
	assert.Contains(t, InboundEvent{EventID: 9, ChatID: 3, Payload: TextPayload{}}.String(), "event 9")
}
