package main

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("login required")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidProductID   = errors.New("invalid product_id")
	ErrInvalidID          = errors.New("invalid id")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrCartEmpty          = errors.New("cart empty")
	ErrCartNotOpen        = errors.New("cart is no longer open")
	ErrMissingAddress     = errors.New("missing shipping address")

	ErrNoPayment           = errors.New("order has no payment record")
	ErrAlreadyPaid         = errors.New("payment already paid")
	ErrPaymentNotPending   = errors.New("payment is no longer pending")
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")

	ErrInvalidShipmentStatus = errors.New("invalid shipment status")
)

// ValidationError is a client mistake in a request field; its message is
// returned to the caller as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
