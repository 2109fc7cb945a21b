package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quangtb/swap-engine/internal/bus"
	"github.com/quangtb/swap-engine/internal/domain"
	"github.com/quangtb/swap-engine/internal/provider"
	"github.com/quangtb/swap-engine/internal/store"
)

// buildDelay simulates transaction assembly. Fixed on purpose; it is not
// part of the configuration surface.
const buildDelay = 500 * time.Millisecond

// Executor drives one order through the execution state machine:
//
//	PENDING → ROUTING → BUILDING → SUBMITTED → CONFIRMED
//
// Every transition persists first, then publishes, so subscribers never
// see a state that failed to persist. The executor owns all order status
// writes; a generic provider or store failure is propagated to the
// scheduler untouched, leaving the order at its last non-terminal status
// so the retry re-enters safely at ROUTING.
type Executor struct {
	store      store.OrderStore
	provider   provider.ExecutionProvider
	bus        bus.Bus
	logger     *slog.Logger
	buildDelay time.Duration
}

// NewExecutor creates a pipeline executor.
func NewExecutor(orders store.OrderStore, prov provider.ExecutionProvider, eventBus bus.Bus, logger *slog.Logger) *Executor {
	return &Executor{
		store:      orders,
		provider:   prov,
		bus:        eventBus,
		logger:     logger,
		buildDelay: buildDelay,
	}
}

// ProcessOrder executes one delivery attempt. A nil return means the job
// is done, including the slippage rejection path: that outcome is a final
// business decision, already persisted, and must not trigger a retry.
func (e *Executor) ProcessOrder(ctx context.Context, orderID string) error {
	order, err := e.store.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	// Idempotency guard against duplicate delivery: terminal orders are
	// never re-executed or re-logged.
	if order.IsTerminal() {
		e.logger.Info("Order already processed, skipping",
			slog.String("order_id", orderID),
			slog.String("status", order.Status),
		)
		return nil
	}

	if err := e.advance(ctx, orderID, domain.OrderStatusRouting, "Finding best route...", ""); err != nil {
		return err
	}

	quote, err := e.provider.GetQuote(ctx, order.Amount)
	if err != nil {
		return fmt.Errorf("failed to get quote: %w", err)
	}

	message := fmt.Sprintf("Quote received: %s @ %.4f", quote.Provider, quote.Price)
	if err := e.advance(ctx, orderID, domain.OrderStatusBuilding, message, ""); err != nil {
		return err
	}

	if err := e.assemble(ctx); err != nil {
		return err
	}

	if err := e.advance(ctx, orderID, domain.OrderStatusSubmitted, "Transaction submitted to network", ""); err != nil {
		return err
	}

	result, err := e.provider.ExecuteSwap(ctx, quote)
	if err != nil {
		var slippageErr *provider.SlippageError
		if errors.As(err, &slippageErr) {
			return e.reject(ctx, orderID, slippageErr)
		}
		return fmt.Errorf("failed to execute swap: %w", err)
	}

	message = fmt.Sprintf("Swap confirmed. Final price: %.4f", result.FinalPrice)
	if err := e.advance(ctx, orderID, domain.OrderStatusConfirmed, message, result.TxHash); err != nil {
		return err
	}

	e.logger.Info("Order confirmed",
		slog.String("order_id", orderID),
		slog.String("tx_hash", result.TxHash),
	)
	return nil
}

// HandleExhausted is the scheduler's exhaustion hook: after the final
// failed attempt it forces the order into FAILED with a terminal log
// entry. This is the only place a generic failure becomes terminal.
func (e *Executor) HandleExhausted(ctx context.Context, orderID string, attempts int, lastErr error) {
	message := fmt.Sprintf("Order failed after %d attempts: %v", attempts, lastErr)

	result, err := e.store.Update(ctx, orderID, store.Mutation{
		Status:  domain.OrderStatusFailed,
		Message: message,
	})
	if err != nil {
		// Typically a job whose order never existed; nothing to mark.
		e.logger.Error("Failed to record retry exhaustion",
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
		return
	}

	e.publish(ctx, orderID, result, "")
}

// advance persists one status transition with its log entry, then
// publishes the corresponding event.
func (e *Executor) advance(ctx context.Context, orderID, status, message, txHash string) error {
	result, err := e.store.Update(ctx, orderID, store.Mutation{
		Status:  status,
		Message: message,
		TxHash:  txHash,
	})
	if err != nil {
		return fmt.Errorf("failed to persist %s transition: %w", status, err)
	}

	e.publish(ctx, orderID, result, txHash)
	return nil
}

// reject records a slippage rejection as a final FAILED state. The error
// is swallowed deliberately so the scheduler does not retry a business
// decision.
func (e *Executor) reject(ctx context.Context, orderID string, slippageErr *provider.SlippageError) error {
	e.logger.Info("Order rejected by provider",
		slog.String("order_id", orderID),
		slog.String("reason", slippageErr.Error()),
	)

	message := fmt.Sprintf("Slippage error: %s", slippageErr.Error())
	if err := e.advance(ctx, orderID, domain.OrderStatusFailed, message, ""); err != nil {
		return err
	}
	return nil
}

func (e *Executor) publish(ctx context.Context, orderID string, result *store.AppendResult, txHash string) {
	e.bus.Publish(ctx, bus.Event{
		OrderID:   orderID,
		Status:    result.Entry.Status,
		Message:   result.Entry.Message,
		Timestamp: result.Entry.Timestamp,
		TxHash:    txHash,
		Seq:       result.Seq,
	})
}

func (e *Executor) assemble(ctx context.Context) error {
	timer := time.NewTimer(e.buildDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
