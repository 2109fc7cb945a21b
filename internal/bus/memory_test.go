package bus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestMemoryBusPublishSubscribe(t *testing.T) {
	b := NewMemoryBus(testLogger())
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "order-1")
	require.NoError(t, err)
	defer sub.Close()

	event := Event{OrderID: "order-1", Status: "ROUTING", Message: "routing", Seq: 1}
	b.Publish(ctx, event)

	select {
	case got := <-sub.C:
		assert.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBusIsolatesOrders(t *testing.T) {
	b := NewMemoryBus(testLogger())
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "order-1")
	require.NoError(t, err)
	defer sub.Close()

	b.Publish(ctx, Event{OrderID: "order-2", Status: "ROUTING", Seq: 1})

	select {
	case got := <-sub.C:
		t.Fatalf("unexpected event: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusFanOut(t *testing.T) {
	b := NewMemoryBus(testLogger())
	ctx := context.Background()

	first, err := b.Subscribe(ctx, "order-1")
	require.NoError(t, err)
	defer first.Close()

	second, err := b.Subscribe(ctx, "order-1")
	require.NoError(t, err)
	defer second.Close()

	b.Publish(ctx, Event{OrderID: "order-1", Status: "CONFIRMED", Seq: 4})

	for _, sub := range []*Subscription{first, second} {
		select {
		case got := <-sub.C:
			assert.Equal(t, "CONFIRMED", got.Status)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestMemoryBusPublishNeverBlocks(t *testing.T) {
	b := NewMemoryBus(testLogger())
	ctx := context.Background()

	// Subscriber that never drains.
	sub, err := b.Subscribe(ctx, "order-1")
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(ctx, Event{OrderID: "order-1", Status: "ROUTING", Seq: i + 1})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestMemoryBusSubscriptionClose(t *testing.T) {
	b := NewMemoryBus(testLogger())
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "order-1")
	require.NoError(t, err)

	sub.Close()
	sub.Close() // idempotent

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed")

	// Publishing after close must not panic.
	b.Publish(ctx, Event{OrderID: "order-1", Status: "ROUTING", Seq: 1})
}
