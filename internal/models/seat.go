package models

import (
	"time"
)

// Seat represents a single physical seat position on a trip.
// Rows are created when the trip is scheduled and live as long as the trip.
// Invariant: IsBooked is true iff BookingID is non-nil.
type Seat struct {
	ID         string    `json:"id" db:"id"`
	TripID     string    `json:"trip_id" db:"trip_id"`
	SeatNumber string    `json:"seat_number" db:"seat_number"`
	IsBooked   bool      `json:"is_booked" db:"is_booked"`
	BookingID  *string   `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SeatAvailability reports the outcome of an availability check for a
// requested set of seat numbers. Any conflicting seat fails the whole request.
type SeatAvailability struct {
	Available   bool     `json:"available"`
	Conflicting []string `json:"conflicting,omitempty"`
}
