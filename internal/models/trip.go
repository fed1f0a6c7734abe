package models

import (
	"errors"
	"time"
)

// TripStatus represents the status of a scheduled trip
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusCompleted TripStatus = "completed"
)

// Trip represents a scheduled departure on a route
type Trip struct {
	ID            string     `json:"id" db:"id"`
	RouteID       string     `json:"route_id" db:"route_id"`
	VehicleID     string     `json:"vehicle_id" db:"vehicle_id"`
	DriverID      string     `json:"driver_id" db:"driver_id"`
	DepartureTime time.Time  `json:"departure_time" db:"departure_time"`
	ArrivalTime   time.Time  `json:"arrival_time" db:"arrival_time"`
	Price         float64    `json:"price" db:"price"`
	Status        TripStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// TripDetail includes display data joined from the route, vehicle and driver
// directories for booking confirmations and listings.
type TripDetail struct {
	Trip
	RouteOrigin      string `json:"route_origin" db:"route_origin"`
	RouteDestination string `json:"route_destination" db:"route_destination"`
	VehicleName      string `json:"vehicle_name" db:"vehicle_name"`
	VehiclePlate     string `json:"vehicle_plate" db:"vehicle_plate"`
	DriverName       string `json:"driver_name" db:"driver_name"`
	SeatCapacity     int    `json:"seat_capacity" db:"seat_capacity"`
}

// RouteName returns the human readable route label used in notifications
func (t *TripDetail) RouteName() string {
	return t.RouteOrigin + " - " + t.RouteDestination
}

// CreateTripRequest represents the request to schedule a trip
type CreateTripRequest struct {
	RouteID       string    `json:"route_id" binding:"required"`
	VehicleID     string    `json:"vehicle_id" binding:"required"`
	DriverID      string    `json:"driver_id" binding:"required"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
	Price         float64   `json:"price" binding:"required,gte=0"`
	SeatNumbers   []string  `json:"seat_numbers" binding:"required,min=1"`
}

// Validate validates the create trip request
func (r *CreateTripRequest) Validate() error {
	if r.Price < 0 {
		return errors.New("price must not be negative")
	}
	if !r.ArrivalTime.After(r.DepartureTime) {
		return errors.New("arrival_time must be after departure_time")
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

// IsBookable checks whether the trip can still accept bookings
func (t *Trip) IsBookable(now time.Time) bool {
	return t.Status == TripStatusActive && t.DepartureTime.After(now)
}

// CanTransitionTo enforces one-directional status transitions:
// active -> completed or active -> cancelled, no resurrection.
func (t *Trip) CanTransitionTo(next TripStatus) bool {
	if t.Status == next {
		return false
	}
	return t.Status == TripStatusActive &&
		(next == TripStatusCompleted || next == TripStatusCancelled)
}
