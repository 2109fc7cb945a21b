package dto

import "time"

// CreateOrderRequest is the order submission body. Amount is validated
// semantically by the domain (must be > 0), not by binding tags, so the
// caller gets the precise rejection reason.
type CreateOrderRequest struct {
	InputToken  string  `json:"input_token" binding:"required"`
	OutputToken string  `json:"output_token" binding:"required"`
	Amount      float64 `json:"amount"`
}

// CreateOrderResponse acknowledges an accepted order.
type CreateOrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// StreamFrame is one WebSocket message on the status stream. Its shape is
// frozen for compatibility with consumers reading historical orders.
type StreamFrame struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	TxHash    string    `json:"tx_hash,omitempty"`
}
