package models

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a passenger reservation on a trip.
// SeatNumbers is a denormalized copy of the seats claimed in the seat ledger.
type Booking struct {
	ID                 string         `json:"id" db:"id"`
	BookingNumber      string         `json:"booking_number" db:"booking_number"`
	TripID             string         `json:"trip_id" db:"trip_id"`
	UserID             *string        `json:"user_id,omitempty" db:"user_id"`
	PassengerCount     int            `json:"passenger_count" db:"passenger_count"`
	ContactInfo        JSONMap        `json:"contact_info" db:"contact_info"`
	PassengerDetails   JSONList       `json:"passenger_details" db:"passenger_details"`
	SeatNumbers        pq.StringArray `json:"seat_numbers" db:"seat_numbers"`
	TotalAmount        float64        `json:"total_amount" db:"total_amount"`
	DiscountAmount     float64        `json:"discount_amount" db:"discount_amount"`
	PromotionID        *string        `json:"promotion_id,omitempty" db:"promotion_id"`
	PaymentStatus      PaymentStatus  `json:"payment_status" db:"payment_status"`
	Status             BookingStatus  `json:"status" db:"status"`
	CancellationReason *string        `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// BookingDetail is a booking expanded with trip and promotion display data
type BookingDetail struct {
	Booking
	Trip      *TripDetail `json:"trip,omitempty"`
	Promotion *Promotion  `json:"promotion,omitempty"`
	Payment   *Payment    `json:"payment,omitempty"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	TripID           string   `json:"trip_id" binding:"required"`
	SeatNumbers      []string `json:"seat_numbers" binding:"required,min=1"`
	PassengerCount   int      `json:"passenger_count" binding:"required,min=1"`
	ContactInfo      JSONMap  `json:"contact_info" binding:"required"`
	PassengerDetails JSONList `json:"passenger_details,omitempty"`
	PromotionCode    *string  `json:"promotion_code,omitempty"`
	UserID           *string  `json:"user_id,omitempty"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.PassengerCount <= 0 {
		return errors.New("passenger_count must be at least 1")
	}
	if r.PassengerCount > 10 {
		return errors.New("maximum 10 passengers per booking")
	}
	if len(r.SeatNumbers) != r.PassengerCount {
		return errors.New("seat_numbers count must match passenger_count")
	}
	seen := make(map[string]bool, len(r.SeatNumbers))
	for _, sn := range r.SeatNumbers {
		if sn == "" {
			return errors.New("seat numbers must not be empty")
		}
		if seen[sn] {
			return errors.New("duplicate seat number: " + sn)
		}
		seen[sn] = true
	}
	return nil
}

// ContactEmail returns the contact email if present in the free-form contact info
func (r *CreateBookingRequest) ContactEmail() string {
	if r.ContactInfo == nil {
		return ""
	}
	if email, ok := r.ContactInfo["email"].(string); ok {
		return email
	}
	return ""
}

// ContactEmail returns the contact email stored on the booking, if any
func (b *Booking) ContactEmail() string {
	if b.ContactInfo == nil {
		return ""
	}
	if email, ok := b.ContactInfo["email"].(string); ok {
		return email
	}
	return ""
}

// UpdateBookingStatusRequest represents the request to change a booking status
type UpdateBookingStatusRequest struct {
	Status             BookingStatus `json:"status" binding:"required"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
}

// Validate validates the status update request
func (r *UpdateBookingStatusRequest) Validate() error {
	switch r.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return nil
	default:
		return errors.New("invalid booking status")
	}
}

// BookingStats counts bookings per status for the admin dashboard
type BookingStats struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// CanBeCancelled checks if the booking can be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status != BookingStatusCancelled
}

// IsPaid checks if the booking is paid
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}
