package domain

import "errors"

var (
	// ErrOrderNotFound is returned when an order id has no matching record
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderTerminal is returned when attempting to mutate a CONFIRMED or FAILED order
	ErrOrderTerminal = errors.New("order is in a terminal state")

	// Validation errors surfaced synchronously at submission time
	ErrEmptyInputToken   = errors.New("input_token must not be empty")
	ErrEmptyOutputToken  = errors.New("output_token must not be empty")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
)
