package bus

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer bounds how far a slow consumer may lag before events
// are dropped. History replay through the store covers anything dropped.
const subscriberBuffer = 16

// MemoryBus is an in-process broadcast Bus. It is the default backend for
// single-binary deployments.
type MemoryBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		logger: logger,
		subs:   make(map[string]map[int]chan Event),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs[event.OrderID] {
		select {
		case ch <- event:
		default:
			// Slow subscriber; drop rather than stall the pipeline.
			b.logger.Warn("Dropping event for slow subscriber",
				slog.String("order_id", event.OrderID),
				slog.Int("subscriber_id", id),
				slog.Int("seq", event.Seq),
			)
		}
	}
}

func (b *MemoryBus) Subscribe(ctx context.Context, orderID string) (*Subscription, error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[int]chan Event)
	}
	b.subs[orderID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return &Subscription{
		C: ch,
		close: func() {
			once.Do(func() {
				b.mu.Lock()
				delete(b.subs[orderID], id)
				if len(b.subs[orderID]) == 0 {
					delete(b.subs, orderID)
				}
				b.mu.Unlock()
				close(ch)
			})
		},
	}, nil
}
