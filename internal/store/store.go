package store

import (
	"context"

	"github.com/quangtb/swap-engine/internal/domain"
)

// Mutation is one atomic order update: a status change merged with exactly
// one appended log entry, plus the tx hash when the swap confirmed.
type Mutation struct {
	Status  string
	Message string
	TxHash  string // applied only when non-empty
}

// AppendResult reports what an Update persisted. Seq is the log length
// after the append; subscribers use it to de-duplicate replayed history
// against live events.
type AppendResult struct {
	Entry domain.LogEntry
	Seq   int
}

// OrderStore is the durable record store for orders: one row per order
// plus an append-only execution log. Only the pipeline (and the
// scheduler's exhaustion hook) write to it.
type OrderStore interface {
	// Create persists a new order. The order must already be validated.
	Create(ctx context.Context, order *domain.Order) error

	// FindByID returns the order or domain.ErrOrderNotFound.
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// Update atomically merges the mutation's status change and appends
	// one log entry. Returns domain.ErrOrderNotFound for unknown ids and
	// domain.ErrOrderTerminal when the order already reached a terminal
	// state.
	Update(ctx context.Context, id string, mut Mutation) (*AppendResult, error)
}
