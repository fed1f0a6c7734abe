package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/engracedsmile/travel-backend/internal/models"
)

// PaymentRepository handles database operations for the payments table.
// The gateway reference is unique across all payments and is the idempotency
// key for webhook and verify re-delivery.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, booking_id, amount, reference, status, method,
	paid_at, failure_reason, created_at, updated_at
`

// Create inserts a new payment row
func (r *PaymentRepository) Create(payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	query := `
		INSERT INTO payments (id, booking_id, amount, reference, status, method, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowx(query,
		payment.ID, payment.BookingID, payment.Amount, payment.Reference,
		payment.Status, payment.Method, payment.PaidAt,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByReference retrieves a payment by its gateway reference
func (r *PaymentRepository) GetByReference(reference string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	if err := r.db.Get(payment, query, reference); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return payment, nil
}

// GetByBookingID retrieves the most recent payment attempt for a booking,
// if any. A booking accumulates one row per gateway attempt.
func (r *PaymentRepository) GetByBookingID(bookingID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.Get(payment, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return payment, nil
}

// HasPaid reports whether any payment attempt for the booking succeeded.
// This must scan all attempts: an abandoned pending row can sit alongside
// the paid one.
func (r *PaymentRepository) HasPaid(bookingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE booking_id = $1 AND status = 'paid')`
	if err := r.db.Get(&exists, query, bookingID); err != nil {
		return false, fmt.Errorf("failed to check paid payments: %w", err)
	}
	return exists, nil
}

// MarkPaidTx transitions a pending payment to paid inside a transaction.
// The conditional update only touches non-terminal rows; zero rows affected
// means another verify or webhook delivery already settled this reference
// and the caller must skip all side effects.
func (r *PaymentRepository) MarkPaidTx(tx *sqlx.Tx, reference string, method *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'paid', method = COALESCE($2, method),
			paid_at = NOW(), updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`
	result, err := tx.Exec(query, reference, method)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkFailed transitions a pending payment to failed. Terminal rows are
// never overwritten.
func (r *PaymentRepository) MarkFailed(reference string, reason *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`
	result, err := r.db.Exec(query, reference, reason)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Beginx starts a transaction for the payment reconciliation path
func (r *PaymentRepository) Beginx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// GetStats aggregates payment counts and the paid total
func (r *PaymentRepository) GetStats() (*models.PaymentStats, error) {
	stats := &models.PaymentStats{}
	query := `
		SELECT COUNT(*) AS total_count,
			   COUNT(*) FILTER (WHERE status = 'paid') AS paid_count,
			   COUNT(*) FILTER (WHERE status = 'pending') AS pending_count,
			   COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
			   COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS total_paid
		FROM payments
	`
	if err := r.db.Get(stats, query); err != nil {
		return nil, fmt.Errorf("failed to fetch payment stats: %w", err)
	}
	return stats, nil
}
