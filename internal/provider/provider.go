package provider

import (
	"context"
	"fmt"
)

// Quote is a priced execution proposal from a venue, prior to execution.
// Quotes are transient; they inform log messages and are never persisted.
type Quote struct {
	Provider  string  `json:"provider"`
	Price     float64 `json:"price"`
	AmountOut float64 `json:"amount_out"`
}

// SwapResult is the outcome of a successful swap execution.
type SwapResult struct {
	TxHash     string  `json:"tx_hash"`
	FinalPrice float64 `json:"final_price"`
}

// SlippageError signals that the executed price deviated from the quoted
// price beyond tolerance. It is a business rejection, not a transient
// fault: callers must not retry it.
type SlippageError struct {
	Slippage  float64
	Tolerance float64
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("slippage exceeded: %.2f%% (tolerance %.2f%%)", e.Slippage*100, e.Tolerance*100)
}

// ExecutionProvider routes and executes swaps. Implementations may take
// non-trivial time on either call; both honor context cancellation.
//
// GetQuote fails only generically. ExecuteSwap fails either generically
// (retryable) or with *SlippageError (terminal business rejection).
type ExecutionProvider interface {
	GetQuote(ctx context.Context, amount float64) (*Quote, error)
	ExecuteSwap(ctx context.Context, quote *Quote) (*SwapResult, error)
}
