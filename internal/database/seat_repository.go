package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/engracedsmile/travel-backend/internal/models"
)

// ErrSeatConflict is returned when a seat claim targets a seat that is
// already booked. The caller must roll back the surrounding transaction.
var ErrSeatConflict = fmt.Errorf("one or more seats are already booked")

// SeatRepository is the seat ledger: it tracks, per trip, which seat
// numbers are booked and by which booking.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// CreateForTripTx creates one seat row per physical seat position when a
// trip is scheduled. Runs inside the trip-creation transaction.
func (r *SeatRepository) CreateForTripTx(tx *sqlx.Tx, tripID string, seatNumbers []string) error {
	query := `
		INSERT INTO seats (id, trip_id, seat_number, is_booked)
		VALUES ($1, $2, $3, FALSE)
	`
	for _, sn := range seatNumbers {
		if _, err := tx.Exec(query, uuid.New().String(), tripID, sn); err != nil {
			return fmt.Errorf("failed to create seat %s: %w", sn, err)
		}
	}
	return nil
}

// GetByTripID returns all seats for a trip ordered by seat number
func (r *SeatRepository) GetByTripID(tripID string) ([]models.Seat, error) {
	query := `
		SELECT id, trip_id, seat_number, is_booked, booking_id, created_at, updated_at
		FROM seats
		WHERE trip_id = $1
		ORDER BY seat_number
	`
	seats := []models.Seat{}
	if err := r.db.Select(&seats, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to fetch seats: %w", err)
	}
	return seats, nil
}

// CheckAvailability intersects the requested seat numbers against booked
// rows. Any non-empty intersection fails the whole request; partial claims
// are never made.
func (r *SeatRepository) CheckAvailability(tripID string, seatNumbers []string) (*models.SeatAvailability, error) {
	if len(seatNumbers) == 0 {
		return &models.SeatAvailability{Available: true}, nil
	}

	query, args, err := sqlx.In(`
		SELECT seat_number
		FROM seats
		WHERE trip_id = ? AND seat_number IN (?) AND is_booked = TRUE
	`, tripID, seatNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to build availability query: %w", err)
	}
	query = r.db.Rebind(query)

	conflicting := []string{}
	if err := r.db.Select(&conflicting, query, args...); err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}

	return &models.SeatAvailability{
		Available:   len(conflicting) == 0,
		Conflicting: conflicting,
	}, nil
}

// ClaimTx marks the requested seats as booked and links them to the booking,
// in one conditional update. A short rows-affected count means another
// booking won the race for at least one seat; the whole claim fails with
// ErrSeatConflict and the caller rolls the transaction back.
func (r *SeatRepository) ClaimTx(tx *sqlx.Tx, tripID string, seatNumbers []string, bookingID string) error {
	query, args, err := sqlx.In(`
		UPDATE seats
		SET is_booked = TRUE, booking_id = ?, updated_at = NOW()
		WHERE trip_id = ? AND seat_number IN (?) AND is_booked = FALSE
	`, bookingID, tripID, seatNumbers)
	if err != nil {
		return fmt.Errorf("failed to build claim query: %w", err)
	}
	query = tx.Rebind(query)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to claim seats: %w", err)
	}

	claimed, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read claim result: %w", err)
	}
	if int(claimed) != len(seatNumbers) {
		return ErrSeatConflict
	}
	return nil
}

// ReleaseTx clears is_booked and booking_id on all seats referencing the
// booking, inside an existing transaction.
func (r *SeatRepository) ReleaseTx(tx *sqlx.Tx, bookingID string) error {
	query := `
		UPDATE seats
		SET is_booked = FALSE, booking_id = NULL, updated_at = NOW()
		WHERE booking_id = $1
	`
	if _, err := tx.Exec(query, bookingID); err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}

// Release clears is_booked and booking_id on all seats referencing the booking
func (r *SeatRepository) Release(bookingID string) error {
	query := `
		UPDATE seats
		SET is_booked = FALSE, booking_id = NULL, updated_at = NOW()
		WHERE booking_id = $1
	`
	if _, err := r.db.Exec(query, bookingID); err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}

// DeleteByBookingTx removes seat rows referencing a booking. Used only by the
// hard-delete path; cancellation releases seats instead.
func (r *SeatRepository) DeleteByBookingTx(tx *sqlx.Tx, bookingID string) error {
	if _, err := tx.Exec(`DELETE FROM seats WHERE booking_id = $1`, bookingID); err != nil {
		return fmt.Errorf("failed to delete seats: %w", err)
	}
	return nil
}
