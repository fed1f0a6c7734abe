package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/engracedsmile/travel-backend/internal/models"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GenerateBookingNumber builds a human-readable booking number from the
// last six digits of a millisecond timestamp. Not collision-proof under
// concurrent creation within the same window; practically unique for this
// booking volume.
func (r *BookingRepository) GenerateBookingNumber() string {
	ms := time.Now().UnixMilli()
	return fmt.Sprintf("BK-%06d", ms%1000000)
}

// CreateWithSeats inserts the booking and claims its seats as one atomic
// unit. The conditional seat claim runs in the same transaction as the
// insert so two concurrent requests for the same seat cannot both succeed;
// a lost race surfaces as ErrSeatConflict and nothing is persisted.
func (r *BookingRepository) CreateWithSeats(booking *models.Booking, seatRepo *SeatRepository) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	query := `
		INSERT INTO bookings (
			id, booking_number, trip_id, user_id, passenger_count,
			contact_info, passenger_details, seat_numbers,
			total_amount, discount_amount, promotion_id,
			payment_status, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowx(query,
		booking.ID, booking.BookingNumber, booking.TripID, booking.UserID,
		booking.PassengerCount, booking.ContactInfo, booking.PassengerDetails,
		booking.SeatNumbers, booking.TotalAmount, booking.DiscountAmount,
		booking.PromotionID, booking.PaymentStatus, booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := seatRepo.ClaimTx(tx, booking.TripID, []string(booking.SeatNumbers), booking.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

const bookingColumns = `
	id, booking_number, trip_id, user_id, passenger_count,
	contact_info, passenger_details, seat_numbers,
	total_amount, discount_amount, promotion_id,
	payment_status, status, cancellation_reason,
	created_at, updated_at
`

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.Get(booking, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return booking, nil
}

// GetByNumber retrieves a booking by its booking number
func (r *BookingRepository) GetByNumber(bookingNumber string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_number = $1`
	if err := r.db.Get(booking, query, bookingNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return booking, nil
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID string, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.Select(&bookings, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	return bookings, nil
}

// GetByTripID retrieves all non-cancelled bookings for a trip
func (r *BookingRepository) GetByTripID(tripID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE trip_id = $1 AND status != 'cancelled'
		ORDER BY created_at
	`
	if err := r.db.Select(&bookings, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	return bookings, nil
}

// List retrieves bookings with pagination, newest first
func (r *BookingRepository) List(limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.Select(&bookings, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatus transitions the booking status, optionally recording a
// cancellation reason.
func (r *BookingRepository) UpdateStatus(bookingID string, status models.BookingStatus, reason *string) error {
	query := `
		UPDATE bookings
		SET status = $2,
			cancellation_reason = COALESCE($3, cancellation_reason),
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(query, bookingID, status, reason)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkPaidTx flips the booking to paid/confirmed inside the payment
// reconciliation transaction.
func (r *BookingRepository) MarkPaidTx(tx *sqlx.Tx, bookingID string) error {
	query := `
		UPDATE bookings
		SET payment_status = 'paid', status = 'confirmed', updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(query, bookingID); err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	return nil
}

// Cancel sets the booking cancelled and releases its seats in one
// transaction. The row is kept.
func (r *BookingRepository) Cancel(bookingID string, reason *string, seatRepo *SeatRepository) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $2, updated_at = NOW()
		WHERE id = $1
	`, bookingID, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := seatRepo.ReleaseTx(tx, bookingID); err != nil {
		return err
	}

	return tx.Commit()
}

// HardDelete removes the payment row (if any), the seat rows referencing the
// booking, then the booking itself. The service layer guards against deleting
// bookings with a successful payment before calling this.
func (r *BookingRepository) HardDelete(bookingID string, seatRepo *SeatRepository) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM payments WHERE booking_id = $1`, bookingID); err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	if err := seatRepo.DeleteByBookingTx(tx, bookingID); err != nil {
		return err
	}

	result, err := tx.Exec(`DELETE FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// CountByStatus returns the number of bookings per status, used by the
// admin dashboard.
func (r *BookingRepository) CountByStatus(status models.BookingStatus) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE status = $1`, status)
	return count, err
}
