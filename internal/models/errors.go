package models

import "errors"

// Sentinel errors shared by repositories, services, and handlers. Callers
// match them with errors.Is; call sites add context with fmt.Errorf and %w.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrCartNotFound        = errors.New("cart not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrEmptyOrder          = errors.New("order must contain at least one item")
	ErrInvalidQuantity     = errors.New("line item quantity must be at least 1")
	ErrSignatureMismatch   = errors.New("payment signature mismatch")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)
