package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
)

// CallerRole is the authorization capability passed into admin-gated
// operations. Core services check it explicitly instead of reading a
// framework request object.
type CallerRole string

const (
	RoleCustomer CallerRole = "customer"
	RoleAdmin    CallerRole = "admin"
)

// BookingService is the single entry point for creating, mutating and
// deleting bookings. Seat claims and booking inserts run as one atomic unit.
type BookingService struct {
	bookingRepo   *database.BookingRepository
	seatRepo      *database.SeatRepository
	tripRepo      *database.TripRepository
	promotionRepo *database.PromotionRepository
	paymentRepo   *database.PaymentRepository
	promotions    *PromotionService
	notifier      Notifier
	logger        *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	seatRepo *database.SeatRepository,
	tripRepo *database.TripRepository,
	promotionRepo *database.PromotionRepository,
	paymentRepo *database.PaymentRepository,
	promotions *PromotionService,
	notifier Notifier,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:   bookingRepo,
		seatRepo:      seatRepo,
		tripRepo:      tripRepo,
		promotionRepo: promotionRepo,
		paymentRepo:   paymentRepo,
		promotions:    promotions,
		notifier:      notifier,
		logger:        logger,
	}
}

// Create verifies availability, computes totals, persists the booking and
// claims its seats atomically, then fires the confirmation notification.
// A bad promotion code aborts the whole booking; it never silently falls
// back to full price.
func (s *BookingService) Create(req *models.CreateBookingRequest) (*models.BookingDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	// 1. Load trip
	trip, err := s.tripRepo.GetByID(req.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return nil, fmt.Errorf("%w: trip not found", ErrNotFound)
	}
	if !trip.IsBookable(time.Now()) {
		return nil, fmt.Errorf("%w: trip is not available for booking (status: %s)", ErrConflict, trip.Status)
	}

	// 2. Check seat availability up front for a friendly conflict message.
	// The claim inside the transaction is the authoritative check.
	availability, err := s.seatRepo.CheckAvailability(req.TripID, req.SeatNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to check seat availability: %w", err)
	}
	if !availability.Available {
		return nil, fmt.Errorf("%w: seats already booked: %s",
			ErrConflict, strings.Join(availability.Conflicting, ", "))
	}

	// 3. Compute totals
	baseAmount := trip.Price * float64(req.PassengerCount)
	totalAmount := baseAmount
	var discountAmount float64
	var promotionID *string
	var promotion *models.Promotion

	// 4. Apply promotion if a code was supplied
	if req.PromotionCode != nil && *req.PromotionCode != "" {
		promotion, err = s.promotions.Validate(*req.PromotionCode, req.UserID, &trip.RouteID, baseAmount)
		if err != nil {
			return nil, err
		}
		result := s.promotions.CalculateDiscount(promotion, baseAmount)
		discountAmount = result.DiscountAmount
		totalAmount = result.FinalAmount
		promotionID = &promotion.ID
	}

	// 5. Persist booking and claim seats as one transaction
	booking := &models.Booking{
		BookingNumber:    s.bookingRepo.GenerateBookingNumber(),
		TripID:           req.TripID,
		UserID:           req.UserID,
		PassengerCount:   req.PassengerCount,
		ContactInfo:      req.ContactInfo,
		PassengerDetails: req.PassengerDetails,
		SeatNumbers:      pq.StringArray(req.SeatNumbers),
		TotalAmount:      totalAmount,
		DiscountAmount:   discountAmount,
		PromotionID:      promotionID,
		PaymentStatus:    models.PaymentStatusPending,
		Status:           models.BookingStatusPending,
	}
	if err := s.bookingRepo.CreateWithSeats(booking, s.seatRepo); err != nil {
		if errors.Is(err, database.ErrSeatConflict) {
			return nil, fmt.Errorf("%w: seats already booked", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	// 6. Consume the promotion usage slot. Best effort after commit: usage
	// is consumed at booking-creation time, and a failure here must not
	// roll back the booking.
	if promotionID != nil {
		if err := s.promotions.Apply(*promotionID, booking.ID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id":   booking.ID,
				"promotion_id": *promotionID,
			}).Error("Failed to record promotion usage for booking")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"trip_id":        booking.TripID,
		"total_amount":   booking.TotalAmount,
		"seats":          req.SeatNumbers,
	}).Info("Booking created")

	// 7. Confirmation notification is fire-and-forget
	s.notifier.BookingConfirmed(booking, trip)

	return &models.BookingDetail{
		Booking:   *booking,
		Trip:      trip,
		Promotion: promotion,
	}, nil
}

// GetByID returns a booking expanded with trip, promotion and payment data
func (s *BookingService) GetByID(bookingID string) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	return s.expand(booking)
}

// GetByNumber looks a booking up by its human readable booking number
func (s *BookingService) GetByNumber(bookingNumber string) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByNumber(bookingNumber)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	return s.expand(booking)
}

// List returns bookings with pagination (admin)
func (s *BookingService) List(limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bookingRepo.List(limit, offset)
}

// GetByTrip returns a trip's active bookings, the passenger manifest
// view for admins
func (s *BookingService) GetByTrip(tripID string) ([]models.Booking, error) {
	return s.bookingRepo.GetByTripID(tripID)
}

// Stats counts bookings per status for the admin dashboard
func (s *BookingService) Stats() (*models.BookingStats, error) {
	pending, err := s.bookingRepo.CountByStatus(models.BookingStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	confirmed, err := s.bookingRepo.CountByStatus(models.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	cancelled, err := s.bookingRepo.CountByStatus(models.BookingStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	return &models.BookingStats{
		Pending:   pending,
		Confirmed: confirmed,
		Cancelled: cancelled,
		Total:     pending + confirmed + cancelled,
	}, nil
}

// GetByUser returns a user's bookings, newest first
func (s *BookingService) GetByUser(userID string, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bookingRepo.GetByUserID(userID, limit, offset)
}

// UpdateStatus transitions the booking status (admin capability required)
// and sends a status-update notification.
func (s *BookingService) UpdateStatus(bookingID string, req *models.UpdateBookingStatusRequest, role CallerRole) (*models.BookingDetail, error) {
	if role != RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrConflict)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}

	if req.Status == models.BookingStatusCancelled {
		return s.cancel(booking, req.CancellationReason)
	}

	if err := s.bookingRepo.UpdateStatus(bookingID, req.Status, req.CancellationReason); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	booking.Status = req.Status

	detail, err := s.expand(booking)
	if err != nil {
		return nil, err
	}
	s.notifier.BookingStatusChanged(booking, detail.Trip)
	return detail, nil
}

// Cancel releases the booking's seats and marks it cancelled. The row is
// kept.
func (s *BookingService) Cancel(bookingID string, reason *string) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	return s.cancel(booking, reason)
}

func (s *BookingService) cancel(booking *models.Booking, reason *string) (*models.BookingDetail, error) {
	if !booking.CanBeCancelled() {
		return nil, fmt.Errorf("%w: booking is already cancelled", ErrConflict)
	}

	if err := s.bookingRepo.Cancel(booking.ID, reason, s.seatRepo); err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	booking.Status = models.BookingStatusCancelled
	booking.CancellationReason = reason

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
	}).Info("Booking cancelled, seats released")

	detail, err := s.expand(booking)
	if err != nil {
		return nil, err
	}
	s.notifier.BookingStatusChanged(booking, detail.Trip)
	return detail, nil
}

// HardDelete permanently removes a booking, its seats and its payment row.
// Rejected when a successful payment exists; those bookings must be
// cancelled instead.
func (s *BookingService) HardDelete(bookingID string, role CallerRole) error {
	if role != RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrConflict)
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return fmt.Errorf("%w: booking not found", ErrNotFound)
	}

	// Guard against every paid attempt, not just the latest row. The
	// booking's own payment status is checked too in case the rows disagree.
	paid, err := s.paymentRepo.HasPaid(bookingID)
	if err != nil {
		return err
	}
	if paid || booking.IsPaid() {
		return fmt.Errorf("%w: booking has a successful payment; cancel it instead of deleting", ErrConflict)
	}

	if err := s.bookingRepo.HardDelete(bookingID, s.seatRepo); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking hard-deleted")
	return nil
}

func (s *BookingService) expand(booking *models.Booking) (*models.BookingDetail, error) {
	detail := &models.BookingDetail{Booking: *booking}

	trip, err := s.tripRepo.GetByID(booking.TripID)
	if err != nil {
		return nil, err
	}
	detail.Trip = trip

	if booking.PromotionID != nil {
		promo, err := s.promotionRepo.GetByID(*booking.PromotionID)
		if err != nil {
			return nil, err
		}
		detail.Promotion = promo
	}

	payment, err := s.paymentRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, err
	}
	detail.Payment = payment

	return detail, nil
}
