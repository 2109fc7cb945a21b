package handler

import (
	"context"
	"log/slog"

	"github.com/quangtb/swap-engine/internal/bus"
	"github.com/quangtb/swap-engine/internal/store"
)

// OrderQueue is the slice of the scheduler the API needs.
type OrderQueue interface {
	Enqueue(ctx context.Context, orderID string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Store  store.OrderStore
	Bus    bus.Bus
	Queue  OrderQueue
}

// OrderHandler handles order-related HTTP and WebSocket requests
type OrderHandler struct {
	logger *slog.Logger
	store  store.OrderStore
	bus    bus.Bus
	queue  OrderQueue
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(deps *Dependencies) *OrderHandler {
	return &OrderHandler{
		logger: deps.Logger,
		store:  deps.Store,
		bus:    deps.Bus,
		queue:  deps.Queue,
	}
}
