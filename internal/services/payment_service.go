package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
)

const (
	// paymentReferencePrefix prefixes every gateway reference we generate
	paymentReferencePrefix = "ENG"

	// processedReferenceTTL bounds the webhook dedup fast path in Redis.
	// The conditional database update remains the authoritative guard.
	processedReferenceTTL = 24 * time.Hour
)

// PaymentService bridges booking state to the payment gateway's asynchronous
// truth. Every terminal transition happens exactly once per reference, no
// matter how many verify calls or webhook deliveries arrive.
type PaymentService struct {
	paymentRepo *database.PaymentRepository
	bookingRepo *database.BookingRepository
	gateway     *PaystackService
	notifier    Notifier
	cache       *redis.Client
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService. cache may be nil; the
// dedup fast path is then skipped.
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	gateway *PaystackService,
	notifier Notifier,
	cache *redis.Client,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		gateway:     gateway,
		notifier:    notifier,
		cache:       cache,
		logger:      logger,
	}
}

// Initialize starts a gateway transaction for a booking and records a
// pending payment keyed by a fresh reference. If the gateway call fails no
// payment row is created.
func (s *PaymentService) Initialize(bookingID, email string) (*models.InitializePaymentResponse, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}

	reference := fmt.Sprintf("%s_%s_%d", paymentReferencePrefix, bookingID, time.Now().UnixMilli())

	init, err := s.gateway.Initialize(email, booking.TotalAmount, reference)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).
			Error("Payment initialization failed")
		return nil, fmt.Errorf("%w: failed to initialize payment", ErrUpstream)
	}

	payment := &models.Payment{
		BookingID: bookingID,
		Amount:    booking.TotalAmount,
		Reference: reference,
		Status:    models.TransactionStatusPending,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"reference":  reference,
		"amount":     booking.TotalAmount,
	}).Info("Payment initialized")

	return &models.InitializePaymentResponse{
		Payment:          payment,
		AuthorizationURL: init.AuthorizationURL,
		Reference:        reference,
	}, nil
}

// Verify reconciles a reference against the gateway's verify endpoint.
// Safe to call repeatedly: once the payment is terminal, further calls
// return the stored state without repeating side effects.
func (s *PaymentService) Verify(reference string) (*models.VerifyPaymentResponse, error) {
	payment, err := s.paymentRepo.GetByReference(reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment not found", ErrNotFound)
	}

	if payment.IsTerminal() {
		return &models.VerifyPaymentResponse{
			Payment: payment,
			Success: payment.Status == models.TransactionStatusPaid,
			Message: "payment already processed",
		}, nil
	}

	data, err := s.gateway.Verify(reference)
	if err != nil {
		s.logger.WithError(err).WithField("reference", reference).
			Error("Payment verification failed")
		return nil, fmt.Errorf("%w: failed to verify payment", ErrUpstream)
	}

	if data.Status == "success" {
		// Gateway reports minor units; reconcile against the recorded amount
		if data.Amount > 0 && AmountFromMinorUnits(data.Amount) != payment.Amount {
			s.logger.WithFields(logrus.Fields{
				"reference":       reference,
				"recorded_amount": payment.Amount,
				"gateway_amount":  AmountFromMinorUnits(data.Amount),
			}).Warn("Gateway settled amount differs from recorded payment amount")
		}
		if err := s.settle(payment, data.Channel); err != nil {
			return nil, err
		}
		return &models.VerifyPaymentResponse{
			Payment: payment,
			Success: true,
			Message: "payment verified",
		}, nil
	}

	reason := data.GatewayResponse
	flipped, err := s.paymentRepo.MarkFailed(reference, &reason)
	if err != nil {
		return nil, err
	}
	if flipped {
		payment.Status = models.TransactionStatusFailed
		payment.FailureReason = &reason
		s.logger.WithFields(logrus.Fields{
			"reference": reference,
			"status":    data.Status,
		}).Info("Payment marked failed")
	}

	return &models.VerifyPaymentResponse{
		Payment: payment,
		Success: false,
		Message: "payment was not successful",
	}, nil
}

// HandleWebhook processes a gateway webhook delivery. The payload's own
// status field is never trusted; the transaction is re-verified against the
// gateway before any state change. Redelivery of the same event is a no-op.
func (s *PaymentService) HandleWebhook(signature string, body []byte) error {
	if !s.gateway.VerifyWebhookSignature(signature, body) {
		return ErrInvalidSignature
	}

	event, err := s.gateway.ParseWebhook(body)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	if event.Event != "charge.success" {
		s.logger.WithField("event", event.Event).Debug("Ignoring webhook event")
		return nil
	}

	reference := event.Data.Reference

	if s.alreadyProcessed(reference) {
		s.logger.WithField("reference", reference).Debug("Webhook reference already processed")
		return nil
	}

	if _, err := s.Verify(reference); err != nil {
		return err
	}
	return nil
}

// RecordPayment is the manual/administrative path to record a payment made
// out of band. An existing row with the same reference is returned unchanged.
func (s *PaymentService) RecordPayment(req *models.RecordPaymentRequest, role CallerRole) (*models.Payment, error) {
	if role != RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", ErrConflict)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	existing, err := s.paymentRepo.GetByReference(req.Reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	booking, err := s.bookingRepo.GetByID(req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}

	payment := &models.Payment{
		BookingID: req.BookingID,
		Amount:    req.Amount,
		Reference: req.Reference,
		Status:    req.Status,
		Method:    req.Method,
	}
	if req.Status == models.TransactionStatusPaid {
		now := time.Now()
		payment.PaidAt = &now
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"reference":  req.Reference,
		"status":     req.Status,
	}).Info("Payment recorded manually")

	if req.Status == models.TransactionStatusPaid {
		s.notifier.PaymentReceived(booking, payment)
	}

	return payment, nil
}

// Stats aggregates payment totals for the admin dashboard
func (s *PaymentService) Stats() (*models.PaymentStats, error) {
	return s.paymentRepo.GetStats()
}

// settle flips the payment and its booking to paid in one transaction and
// fires the paid-side effects exactly once. Losing the conditional update
// means a concurrent verify or webhook already settled this reference, and
// everything after the update is skipped.
func (s *PaymentService) settle(payment *models.Payment, channel string) error {
	tx, err := s.paymentRepo.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	won, err := s.paymentRepo.MarkPaidTx(tx, payment.Reference, &channel)
	if err != nil {
		return err
	}
	if !won {
		s.logger.WithField("reference", payment.Reference).
			Debug("Payment already settled by a concurrent delivery")
		payment.Status = models.TransactionStatusPaid
		return nil
	}

	if err := s.bookingRepo.MarkPaidTx(tx, payment.BookingID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	now := time.Now()
	payment.Status = models.TransactionStatusPaid
	payment.Method = &channel
	payment.PaidAt = &now

	s.markProcessed(payment.Reference)

	s.logger.WithFields(logrus.Fields{
		"reference":  payment.Reference,
		"booking_id": payment.BookingID,
		"amount":     payment.Amount,
	}).Info("Payment settled, booking confirmed")

	booking, err := s.bookingRepo.GetByID(payment.BookingID)
	if err == nil && booking != nil {
		s.notifier.PaymentReceived(booking, payment)
	}
	return nil
}

func (s *PaymentService) alreadyProcessed(reference string) bool {
	if s.cache == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := s.cache.Exists(ctx, processedKey(reference)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (s *PaymentService) markProcessed(reference string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, processedKey(reference), 1, processedReferenceTTL).Err(); err != nil {
		s.logger.WithError(err).WithField("reference", reference).
			Warn("Failed to cache processed payment reference")
	}
}

func processedKey(reference string) string {
	return "payments:processed:" + reference
}
