package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/middleware"
	"github.com/engracedsmile/travel-backend/internal/models"
	"github.com/engracedsmile/travel-backend/internal/services"
)

// BookingHandler handles booking lifecycle operations
type BookingHandler struct {
	bookings *services.BookingService
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

func callerRole(c *gin.Context) services.CallerRole {
	if userCtx, ok := middleware.GetUserContext(c); ok && userCtx.IsAdmin() {
		return services.RoleAdmin
	}
	return services.RoleCustomer
}

// CreateBooking creates a new booking with seat selection
// @Summary Create a new booking
// @Description Create a booking, claim its seats and apply an optional promotion code
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.BookingDetail
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 409 {object} map[string]interface{} "Seats not available or promotion invalid"
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Stamp the authenticated user when one is present. Guest checkout keeps
	// the contact info as the only identity.
	if userCtx, ok := middleware.GetUserContext(c); ok && req.UserID == nil {
		id := userCtx.UserID.String()
		req.UserID = &id
	}

	detail, err := h.bookings.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// GetBooking returns a booking with its trip, promotion and payment expanded
// @Summary Get booking by ID
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.BookingDetail
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	detail, err := h.bookings.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetBookingByNumber looks a booking up by its booking number
// @Summary Get booking by booking number
// @Tags Bookings
// @Produce json
// @Param number path string true "Booking number"
// @Success 200 {object} models.BookingDetail
// @Router /api/v1/bookings/number/{number} [get]
func (h *BookingHandler) GetBookingByNumber(c *gin.Context) {
	detail, err := h.bookings.GetByNumber(c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListBookings returns all bookings, newest first (admin)
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Success 200 {array} models.Booking
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	limit, offset := paginationParams(c)

	bookings, err := h.bookings.List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ListTripBookings returns the active bookings for a trip (admin)
// @Summary List a trip's bookings
// @Tags Bookings
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {array} models.Booking
// @Security BearerAuth
// @Router /api/v1/trips/{id}/bookings [get]
func (h *BookingHandler) ListTripBookings(c *gin.Context) {
	bookings, err := h.bookings.GetByTrip(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GetBookingStats returns booking counts per status (admin)
// @Summary Booking statistics
// @Tags Bookings
// @Produce json
// @Success 200 {object} models.BookingStats
// @Security BearerAuth
// @Router /api/v1/bookings/stats [get]
func (h *BookingHandler) GetBookingStats(c *gin.Context) {
	stats, err := h.bookings.Stats()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetMyBookings returns the authenticated user's bookings
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Success 200 {array} models.Booking
// @Security BearerAuth
// @Router /api/v1/bookings/my [get]
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, offset := paginationParams(c)

	bookings, err := h.bookings.GetByUser(userCtx.UserID.String(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// UpdateBookingStatus transitions a booking's status (admin)
// @Summary Update booking status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.UpdateBookingStatusRequest true "Status update"
// @Success 200 {object} models.BookingDetail
// @Failure 409 {object} map[string]interface{} "Invalid transition"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/status [patch]
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	detail, err := h.bookings.UpdateStatus(c.Param("id"), &req, callerRole(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// CancelBooking cancels a booking and releases its seats
// @Summary Cancel a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.BookingDetail
// @Failure 409 {object} map[string]interface{} "Already cancelled"
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req struct {
		Reason *string `json:"reason,omitempty"`
	}
	// Body is optional for cancellation
	_ = c.ShouldBindJSON(&req)

	detail, err := h.bookings.Cancel(c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// DeleteBooking permanently removes a booking and its seat claims (admin)
// @Summary Delete a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Booking has a successful payment"
// @Security BearerAuth
// @Router /api/v1/bookings/{id} [delete]
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	if err := h.bookings.HardDelete(c.Param("id"), callerRole(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted"})
}
