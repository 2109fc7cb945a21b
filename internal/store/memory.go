package store

import (
	"context"
	"sync"
	"time"

	"github.com/quangtb/swap-engine/internal/domain"
)

// MemoryStore is an in-process OrderStore. It is the default backend and
// the one used by tests; the mutex makes Update a true read-modify-write
// append, mirroring the atomicity the Postgres backend gets from a single
// UPDATE statement.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*domain.Order),
	}
}

func (s *MemoryStore) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, mut Mutation) (*AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if order.IsTerminal() {
		return nil, domain.ErrOrderTerminal
	}

	now := time.Now().UTC()
	entry := domain.LogEntry{
		Status:    mut.Status,
		Message:   mut.Message,
		Timestamp: now,
	}

	order.Status = mut.Status
	if mut.TxHash != "" {
		order.TxHash = mut.TxHash
	}
	order.ExecutionLog = append(order.ExecutionLog, entry)
	order.UpdatedAt = now

	return &AppendResult{Entry: entry, Seq: len(order.ExecutionLog)}, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.ExecutionLog = make([]domain.LogEntry, len(order.ExecutionLog))
	copy(clone.ExecutionLog, order.ExecutionLog)
	return &clone
}
