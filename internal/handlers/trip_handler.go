package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
)

// TripHandler handles trip scheduling and seat availability operations
type TripHandler struct {
	tripRepo *database.TripRepository
	seatRepo *database.SeatRepository
	logger   *logrus.Logger
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(tripRepo *database.TripRepository, seatRepo *database.SeatRepository, logger *logrus.Logger) *TripHandler {
	return &TripHandler{
		tripRepo: tripRepo,
		seatRepo: seatRepo,
		logger:   logger,
	}
}

// CreateTrip schedules a new trip and seeds its seat ledger
// @Summary Schedule a new trip
// @Tags Trips
// @Accept json
// @Produce json
// @Param request body models.CreateTripRequest true "Trip request"
// @Success 201 {object} models.Trip
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Security BearerAuth
// @Router /api/v1/trips [post]
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip := &models.Trip{
		RouteID:       req.RouteID,
		VehicleID:     req.VehicleID,
		DriverID:      req.DriverID,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		Price:         req.Price,
		Status:        models.TripStatusActive,
	}

	if err := h.tripRepo.CreateWithSeats(trip, req.SeatNumbers, h.seatRepo); err != nil {
		h.logger.WithError(err).Error("Failed to create trip")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"trip_id": trip.ID,
		"seats":   len(req.SeatNumbers),
	}).Info("Trip scheduled")

	c.JSON(http.StatusCreated, trip)
}

// ListTrips returns upcoming trips with pagination
// @Summary List trips
// @Tags Trips
// @Produce json
// @Success 200 {array} models.TripDetail
// @Router /api/v1/trips [get]
func (h *TripHandler) ListTrips(c *gin.Context) {
	limit, offset := paginationParams(c)

	trips, err := h.tripRepo.List(limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list trips")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trips": trips, "count": len(trips)})
}

// GetTrip returns a single trip with route, vehicle and driver details
// @Summary Get trip by ID
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.TripDetail
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Router /api/v1/trips/{id} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripRepo.GetByID(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch trip")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trip"})
		return
	}
	if trip == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	c.JSON(http.StatusOK, trip)
}

// GetTripSeats returns the full seat ledger for a trip
// @Summary Get trip seat availability
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {array} models.Seat
// @Router /api/v1/trips/{id}/seats [get]
func (h *TripHandler) GetTripSeats(c *gin.Context) {
	tripID := c.Param("id")

	trip, err := h.tripRepo.GetByID(tripID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trip"})
		return
	}
	if trip == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	seats, err := h.seatRepo.GetByTripID(tripID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch seats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch seats"})
		return
	}

	available := 0
	for _, seat := range seats {
		if !seat.IsBooked {
			available++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"trip_id":   tripID,
		"seats":     seats,
		"available": available,
		"total":     len(seats),
		"bookable":  trip.IsBookable(time.Now()),
	})
}

// UpdateTripStatus transitions a trip out of the active state
// @Summary Update trip status
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Security BearerAuth
// @Router /api/v1/trips/{id}/status [patch]
func (h *TripHandler) UpdateTripStatus(c *gin.Context) {
	tripID := c.Param("id")

	var req struct {
		Status models.TripStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	trip, err := h.tripRepo.GetByID(tripID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trip"})
		return
	}
	if trip == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	if !trip.CanTransitionTo(req.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid status transition"})
		return
	}

	if err := h.tripRepo.UpdateStatus(tripID, req.Status); err != nil {
		h.logger.WithError(err).Error("Failed to update trip status")
		c.JSON(http.StatusConflict, gin.H{"error": "Trip is no longer active"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"trip_id": tripID,
		"status":  req.Status,
	}).Info("Trip status updated")

	c.JSON(http.StatusOK, gin.H{"message": "Trip status updated", "status": req.Status})
}
