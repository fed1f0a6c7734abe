package models

import (
	"errors"
	"time"
)

// TransactionStatus represents the status of a payment transaction
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusPaid    TransactionStatus = "paid"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Payment represents a payment attempt for a booking.
// Reference is unique across all payments and acts as the idempotency key
// for gateway webhook and verify re-delivery.
type Payment struct {
	ID            string            `json:"id" db:"id"`
	BookingID     string            `json:"booking_id" db:"booking_id"`
	Amount        float64           `json:"amount" db:"amount"`
	Reference     string            `json:"reference" db:"reference"`
	Status        TransactionStatus `json:"status" db:"status"`
	Method        *string           `json:"method,omitempty" db:"method"`
	PaidAt        *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
	FailureReason *string           `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the payment has reached a final state.
// Terminal payments are never mutated again; re-delivery must be a no-op.
func (p *Payment) IsTerminal() bool {
	return p.Status == TransactionStatusPaid || p.Status == TransactionStatusFailed
}

// InitializePaymentRequest represents the request to start a gateway payment
type InitializePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// InitializePaymentResponse carries the gateway redirect back to the caller
type InitializePaymentResponse struct {
	Payment          *Payment `json:"payment"`
	AuthorizationURL string   `json:"authorization_url"`
	Reference        string   `json:"reference"`
}

// VerifyPaymentResponse is returned from the synchronous verify path
type VerifyPaymentResponse struct {
	Payment *Payment `json:"payment"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
}

// RecordPaymentRequest is the manual/administrative path to record a payment
type RecordPaymentRequest struct {
	BookingID string            `json:"booking_id" binding:"required"`
	Amount    float64           `json:"amount" binding:"required,gt=0"`
	Reference string            `json:"reference" binding:"required"`
	Status    TransactionStatus `json:"status" binding:"required"`
	Method    *string           `json:"method,omitempty"`
}

// Validate validates the manual record request
func (r *RecordPaymentRequest) Validate() error {
	switch r.Status {
	case TransactionStatusPending, TransactionStatusPaid, TransactionStatusFailed:
	default:
		return errors.New("invalid payment status")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// PaymentStats aggregates payment totals for the admin dashboard
type PaymentStats struct {
	TotalCount   int     `json:"total_count" db:"total_count"`
	PaidCount    int     `json:"paid_count" db:"paid_count"`
	PendingCount int     `json:"pending_count" db:"pending_count"`
	FailedCount  int     `json:"failed_count" db:"failed_count"`
	TotalPaid    float64 `json:"total_paid" db:"total_paid"`
}
