package services

import (
	"errors"
)

// Sentinel errors for the business-rule failure taxonomy. Handlers map these
// to HTTP status codes with errors.Is; none of them is retried internally.
var (
	// ErrNotFound means a referenced trip, booking, promotion or payment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers seat-already-booked, invalid/expired/exhausted
	// promotions and deleting a paid booking. The caller may retry with
	// different inputs.
	ErrConflict = errors.New("conflict")

	// ErrUpstream means the payment gateway was unreachable or returned an
	// error. Surfaced as a generic failure without gateway internals.
	ErrUpstream = errors.New("upstream failure")

	// ErrInvalidSignature means a webhook delivery failed HMAC verification
	// and must be rejected without processing.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
