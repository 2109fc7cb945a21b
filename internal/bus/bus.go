package bus

import (
	"context"
	"time"
)

// Event is one order status transition broadcast to subscribers.
//
// Seq is the order's log length after the transition was persisted. It is
// monotonically increasing per order; transports use it to de-duplicate
// replayed history against live events. It travels between bus nodes but
// is not part of the client-facing frame.
type Event struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Seq       int       `json:"seq"`
}

// Subscription is a live event stream for one order. The channel is closed
// when the subscription is closed; closing is idempotent.
type Subscription struct {
	C     <-chan Event
	close func()
}

// Close detaches the subscriber and closes the channel.
func (s *Subscription) Close() {
	s.close()
}

// Bus is a fire-and-forget broadcast channel for order events. Publishing
// never blocks on slow or absent subscribers; missed events are only
// recoverable through the order's own execution log.
type Bus interface {
	// Publish fans the event out to current subscribers of its order id.
	Publish(ctx context.Context, event Event)

	// Subscribe returns a stream of live events for the order id,
	// starting from subscription time.
	Subscribe(ctx context.Context, orderID string) (*Subscription, error)
}
