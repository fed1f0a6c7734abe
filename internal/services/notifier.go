package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
	"github.com/engracedsmile/travel-backend/pkg/mailer"
)

// Notifier is the outbox boundary for booking and payment events. Delivery
// is fire-and-forget: implementations must never propagate failures back to
// the transactional path that published the event.
type Notifier interface {
	BookingConfirmed(booking *models.Booking, trip *models.TripDetail)
	BookingStatusChanged(booking *models.Booking, trip *models.TripDetail)
	PaymentReceived(booking *models.Booking, payment *models.Payment)
}

// EmailNotifier delivers events as in-app notification rows (for users with
// an account) and emails through the mail gateway.
type EmailNotifier struct {
	notificationRepo *database.NotificationRepository
	mailer           *mailer.Client
	logger           *logrus.Logger
}

// NewEmailNotifier creates a new EmailNotifier
func NewEmailNotifier(notificationRepo *database.NotificationRepository, mailClient *mailer.Client, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		notificationRepo: notificationRepo,
		mailer:           mailClient,
		logger:           logger,
	}
}

// BookingConfirmed sends the booking-confirmation email and notification
func (n *EmailNotifier) BookingConfirmed(booking *models.Booking, trip *models.TripDetail) {
	n.createNotification(booking, models.NotificationTypeBooking,
		"Booking received",
		fmt.Sprintf("Your booking %s for %s has been received.", booking.BookingNumber, trip.RouteName()))

	email := booking.ContactEmail()
	if email == "" {
		return
	}
	payload := mailer.BookingPayload{
		BookingNumber:  booking.BookingNumber,
		Route:          trip.RouteName(),
		Date:           trip.DepartureTime.Format("2006-01-02"),
		Time:           trip.DepartureTime.Format("15:04"),
		PassengerCount: booking.PassengerCount,
		SeatNumbers:    []string(booking.SeatNumbers),
		Amount:         fmt.Sprintf("%.2f", booking.TotalAmount),
	}
	if err := n.mailer.Send(email, mailer.TemplateBookingConfirmation, payload); err != nil {
		n.logger.WithError(err).WithField("booking_id", booking.ID).
			Warn("Failed to send booking confirmation email")
	}
}

// BookingStatusChanged sends a status-update notification
func (n *EmailNotifier) BookingStatusChanged(booking *models.Booking, trip *models.TripDetail) {
	n.createNotification(booking, models.NotificationTypeBooking,
		"Booking updated",
		fmt.Sprintf("Your booking %s is now %s.", booking.BookingNumber, booking.Status))

	email := booking.ContactEmail()
	if email == "" {
		return
	}
	payload := mailer.BookingPayload{
		BookingNumber: booking.BookingNumber,
		Route:         trip.RouteName(),
		Status:        string(booking.Status),
	}
	if err := n.mailer.Send(email, mailer.TemplateBookingStatus, payload); err != nil {
		n.logger.WithError(err).WithField("booking_id", booking.ID).
			Warn("Failed to send booking status email")
	}
}

// PaymentReceived sends the payment-confirmation email and notification
func (n *EmailNotifier) PaymentReceived(booking *models.Booking, payment *models.Payment) {
	n.createNotification(booking, models.NotificationTypePayment,
		"Payment received",
		fmt.Sprintf("Payment of %.2f for booking %s was successful.", payment.Amount, booking.BookingNumber))

	email := booking.ContactEmail()
	if email == "" {
		return
	}
	payload := mailer.BookingPayload{
		BookingNumber: booking.BookingNumber,
		Amount:        fmt.Sprintf("%.2f", payment.Amount),
	}
	if err := n.mailer.Send(email, mailer.TemplatePaymentConfirmation, payload); err != nil {
		n.logger.WithError(err).WithField("payment_id", payment.ID).
			Warn("Failed to send payment confirmation email")
	}
}

func (n *EmailNotifier) createNotification(booking *models.Booking, typ models.NotificationType, title, message string) {
	if booking.UserID == nil {
		return
	}
	notification := &models.Notification{
		UserID:  *booking.UserID,
		Title:   title,
		Message: message,
		Type:    typ,
	}
	if err := n.notificationRepo.Create(notification); err != nil {
		n.logger.WithError(err).WithField("booking_id", booking.ID).
			Warn("Failed to create in-app notification")
	}
}

// NoopNotifier discards all events. Used in tests and when the mail gateway
// is not configured.
type NoopNotifier struct{}

// NewNoopNotifier creates a Notifier that discards all events
func NewNoopNotifier() NoopNotifier {
	return NoopNotifier{}
}

// BookingConfirmed is a no-op
func (NoopNotifier) BookingConfirmed(*models.Booking, *models.TripDetail) {}

// BookingStatusChanged is a no-op
func (NoopNotifier) BookingStatusChanged(*models.Booking, *models.TripDetail) {}

// PaymentReceived is a no-op
func (NoopNotifier) PaymentReceived(*models.Booking, *models.Payment) {}
