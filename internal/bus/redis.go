package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "order-updates:"

// RedisBus broadcasts order events over Redis pub/sub, letting API
// replicas stream updates for orders executed by another process.
type RedisBus struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisBus creates a Redis-backed bus.
func NewRedisBus(rdb *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		rdb:    rdb,
		logger: logger,
	}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to encode event",
			slog.String("order_id", event.OrderID),
			slog.Any("error", err),
		)
		return
	}

	// Fire-and-forget: a publish failure loses only the live push, the
	// transition is already in the order's execution log.
	if err := b.rdb.Publish(ctx, channelPrefix+event.OrderID, payload).Err(); err != nil {
		b.logger.Warn("Failed to publish event",
			slog.String("order_id", event.OrderID),
			slog.Any("error", err),
		)
	}
}

func (b *RedisBus) Subscribe(ctx context.Context, orderID string) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, channelPrefix+orderID)

	// Force the subscription onto the wire before the caller replays
	// history, so no transition can slip between replay and live.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("Discarding malformed event payload",
					slog.String("order_id", orderID),
					slog.Any("error", err),
				)
				continue
			}
			select {
			case out <- event:
			default:
				b.logger.Warn("Dropping event for slow subscriber",
					slog.String("order_id", orderID),
					slog.Int("seq", event.Seq),
				)
			}
		}
	}()

	var once sync.Once
	return &Subscription{
		C: out,
		close: func() {
			once.Do(func() {
				_ = pubsub.Close()
			})
		},
	}, nil
}
