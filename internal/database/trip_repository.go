package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/engracedsmile/travel-backend/internal/models"
)

// TripRepository handles database operations for the trips table and the
// read-only route/vehicle/driver directory joins.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripDetailQuery = `
	SELECT t.id, t.route_id, t.vehicle_id, t.driver_id,
		   t.departure_time, t.arrival_time, t.price, t.status,
		   t.created_at, t.updated_at,
		   r.origin AS route_origin, r.destination AS route_destination,
		   v.name AS vehicle_name, v.plate_number AS vehicle_plate,
		   v.seat_capacity,
		   d.full_name AS driver_name
	FROM trips t
	JOIN routes r ON r.id = t.route_id
	JOIN vehicles v ON v.id = t.vehicle_id
	JOIN drivers d ON d.id = t.driver_id
`

// CreateWithSeats schedules a trip and seeds its seat ledger rows in one
// transaction.
func (r *TripRepository) CreateWithSeats(trip *models.Trip, seatNumbers []string, seatRepo *SeatRepository) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.Status == "" {
		trip.Status = models.TripStatusActive
	}

	query := `
		INSERT INTO trips (id, route_id, vehicle_id, driver_id,
			departure_time, arrival_time, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowx(query,
		trip.ID, trip.RouteID, trip.VehicleID, trip.DriverID,
		trip.DepartureTime, trip.ArrivalTime, trip.Price, trip.Status,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	if err := seatRepo.CreateForTripTx(tx, trip.ID, seatNumbers); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a trip with route, vehicle and driver display data
func (r *TripRepository) GetByID(tripID string) (*models.TripDetail, error) {
	trip := &models.TripDetail{}
	query := tripDetailQuery + ` WHERE t.id = $1`
	if err := r.db.Get(trip, query, tripID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch trip: %w", err)
	}
	return trip, nil
}

// List retrieves trips with pagination, soonest departure first
func (r *TripRepository) List(limit, offset int) ([]models.TripDetail, error) {
	trips := []models.TripDetail{}
	query := tripDetailQuery + `
		ORDER BY t.departure_time
		LIMIT $1 OFFSET $2
	`
	if err := r.db.Select(&trips, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to fetch trips: %w", err)
	}
	return trips, nil
}

// UpdateStatus transitions the trip status. Transitions are one-directional:
// active -> completed or active -> cancelled; the conditional write rejects
// resurrection of cancelled or completed trips.
func (r *TripRepository) UpdateStatus(tripID string, status models.TripStatus) error {
	query := `
		UPDATE trips
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`
	result, err := r.db.Exec(query, tripID, status)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("trip not found or not in a transitionable state")
	}
	return nil
}
