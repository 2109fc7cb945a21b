package provider

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBasePrice    = 100.0 // mock base price for SOL/USDC
	defaultTolerance    = 0.01
	defaultQuoteLatency = 200 * time.Millisecond
	defaultSwapLatency  = 2 * time.Second

	// Execution variance is slightly wider than the quote variance so a
	// fraction of swaps (~15%) lands outside the slippage tolerance.
	quoteVariance = 0.01
	swapVariance  = 0.012
)

// MockDexRouter simulates a DEX aggregator: it prices an order against two
// venues, returns the better quote, and executes swaps with randomized
// slippage around the quoted price.
type MockDexRouter struct {
	basePrice    float64
	tolerance    float64
	quoteLatency time.Duration
	swapLatency  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// MockOption customizes a MockDexRouter, mainly for tests.
type MockOption func(*MockDexRouter)

// WithLatencies overrides the simulated quote and swap latencies.
func WithLatencies(quote, swap time.Duration) MockOption {
	return func(m *MockDexRouter) {
		m.quoteLatency = quote
		m.swapLatency = swap
	}
}

// WithRandSource makes the router deterministic.
func WithRandSource(src rand.Source) MockOption {
	return func(m *MockDexRouter) {
		m.rng = rand.New(src)
	}
}

// WithTolerance overrides the slippage tolerance.
func WithTolerance(tolerance float64) MockOption {
	return func(m *MockDexRouter) {
		m.tolerance = tolerance
	}
}

// NewMockDexRouter creates a simulated execution provider.
func NewMockDexRouter(opts ...MockOption) *MockDexRouter {
	m := &MockDexRouter{
		basePrice:    defaultBasePrice,
		tolerance:    defaultTolerance,
		quoteLatency: defaultQuoteLatency,
		swapLatency:  defaultSwapLatency,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetQuote prices the amount against both venues and returns the quote
// with the higher amount out.
func (m *MockDexRouter) GetQuote(ctx context.Context, amount float64) (*Quote, error) {
	if err := m.sleep(ctx, m.quoteLatency); err != nil {
		return nil, err
	}

	raydium := &Quote{Provider: "Raydium", Price: m.basePrice * m.variance(quoteVariance)}
	meteora := &Quote{Provider: "Meteora", Price: m.basePrice * m.variance(quoteVariance)}
	raydium.AmountOut = amount * raydium.Price
	meteora.AmountOut = amount * meteora.Price

	if raydium.AmountOut > meteora.AmountOut {
		return raydium, nil
	}
	return meteora, nil
}

// ExecuteSwap executes against the quoted venue. The final price drifts
// around the quote; drift beyond the tolerance fails with *SlippageError.
func (m *MockDexRouter) ExecuteSwap(ctx context.Context, quote *Quote) (*SwapResult, error) {
	if err := m.sleep(ctx, m.swapLatency); err != nil {
		return nil, err
	}

	finalPrice := quote.Price * m.variance(swapVariance)
	slippage := finalPrice/quote.Price - 1
	if slippage < 0 {
		slippage = -slippage
	}

	if slippage > m.tolerance {
		return nil, &SlippageError{Slippage: slippage, Tolerance: m.tolerance}
	}

	return &SwapResult{
		TxHash:     "0x" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		FinalPrice: finalPrice,
	}, nil
}

// variance returns a multiplier in [1-spread, 1+spread).
func (m *MockDexRouter) variance(spread float64) float64 {
	m.mu.Lock()
	f := m.rng.Float64()
	m.mu.Unlock()
	return 1 + (f*2*spread - spread)
}

func (m *MockDexRouter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
