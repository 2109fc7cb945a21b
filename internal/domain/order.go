package domain

import "time"

// Order status constants
const (
	OrderStatusPending   = "PENDING"
	OrderStatusRouting   = "ROUTING"
	OrderStatusBuilding  = "BUILDING"
	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusFailed    = "FAILED"
)

// LogEntry is one record in an order's execution log. The JSON shape is
// wire-visible and consumed by WebSocket clients reading historical orders,
// so it must stay {status, message, timestamp}.
type LogEntry struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Order represents a single swap request tracked through its lifecycle.
type Order struct {
	ID           string     `json:"order_id" db:"id"`
	InputToken   string     `json:"input_token" db:"input_token"`
	OutputToken  string     `json:"output_token" db:"output_token"`
	Amount       float64    `json:"amount" db:"amount"`
	Status       string     `json:"status" db:"status"`
	TxHash       string     `json:"tx_hash,omitempty" db:"tx_hash"`
	ExecutionLog []LogEntry `json:"execution_log"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the order has reached a final state.
// Terminal orders must never be mutated or re-executed.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusConfirmed || o.Status == OrderStatusFailed
}

// Validate checks the fields supplied at submission time.
func (o *Order) Validate() error {
	if o.InputToken == "" {
		return ErrEmptyInputToken
	}
	if o.OutputToken == "" {
		return ErrEmptyOutputToken
	}
	if o.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}
