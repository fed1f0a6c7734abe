package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/models"
	"github.com/engracedsmile/travel-backend/internal/services"
)

// PaymentHandler handles payment initialization, verification and
// gateway webhook delivery.
type PaymentHandler struct {
	payments *services.PaymentService
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// InitializePayment starts a gateway payment for a booking
// @Summary Initialize payment
// @Description Create a pending payment and return the gateway authorization URL
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.InitializePaymentRequest true "Payment request"
// @Success 200 {object} models.InitializePaymentResponse
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 502 {object} map[string]interface{} "Gateway unavailable"
// @Router /api/v1/payments/initialize [post]
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req models.InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.payments.Initialize(req.BookingID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment verifies a payment against the gateway by reference
// @Summary Verify payment
// @Tags Payments
// @Produce json
// @Param reference path string true "Payment reference"
// @Success 200 {object} models.VerifyPaymentResponse
// @Failure 404 {object} map[string]interface{} "Payment not found"
// @Router /api/v1/payments/verify/{reference} [get]
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	resp, err := h.payments.Verify(c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleWebhook receives gateway webhook deliveries. The gateway only checks
// the HTTP status; always answer 200 once the signature is valid so it stops
// retrying.
// @Summary Payment gateway webhook
// @Tags Payments
// @Accept json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "Bad signature"
// @Router /api/v1/payments/webhook [post]
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	signature := c.GetHeader("x-paystack-signature")
	if err := h.payments.HandleWebhook(signature, body); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			h.logger.WithField("ip", c.ClientIP()).Warn("Webhook with invalid signature rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		// Processing failures are logged but acknowledged; verify remains
		// available as the reconciliation path.
		h.logger.WithError(err).Error("Webhook processing failed")
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RecordPayment records a manual or offline payment (admin)
// @Summary Record a payment manually
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.RecordPaymentRequest true "Payment record"
// @Success 201 {object} models.Payment
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/payments/record [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.payments.RecordPayment(&req, callerRole(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetStats returns aggregate payment totals (admin)
// @Summary Payment statistics
// @Tags Payments
// @Produce json
// @Success 200 {object} models.PaymentStats
// @Security BearerAuth
// @Router /api/v1/payments/stats [get]
func (h *PaymentHandler) GetStats(c *gin.Context) {
	stats, err := h.payments.Stats()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
