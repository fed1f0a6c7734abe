package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/config"
)

// PaystackService handles payment gateway integration with Paystack.
// Amounts cross this boundary in minor currency units (kobo, x100); the rest
// of the system works in major units. The conversion happens here and only
// here.
type PaystackService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// PaystackInitializeRequest is the body for POST /transaction/initialize
type PaystackInitializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // minor units
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// PaystackInitializeData is the payload of a successful initialize response
type PaystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// PaystackVerifyData is the payload of a verify response
type PaystackVerifyData struct {
	Status          string `json:"status"` // "success", "failed", "abandoned"
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"` // minor units
	Channel         string `json:"channel"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
}

// PaystackWebhookEvent is the inbound webhook body
type PaystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewPaystackService creates a new Paystack gateway client
func NewPaystackService(cfg *config.PaymentConfig, logger *logrus.Logger) *PaystackService {
	return &PaystackService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the gateway credentials are present
func (s *PaystackService) IsConfigured() bool {
	return s.config.SecretKey != ""
}

// Initialize creates a transaction and returns the page the customer is
// redirected to. amount is in major units and converted to minor units on
// the wire.
func (s *PaystackService) Initialize(email string, amount float64, reference string) (*PaystackInitializeData, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	request := &PaystackInitializeRequest{
		Email:       email,
		Amount:      int64(amount * 100),
		Reference:   reference,
		CallbackURL: s.config.CallbackURL,
	}

	s.logger.WithFields(logrus.Fields{
		"reference": reference,
		"amount":    amount,
	}).Info("Initializing Paystack transaction")

	var data PaystackInitializeData
	if err := s.post("/transaction/initialize", request, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("payment initialization failed: no authorization URL returned")
	}
	return &data, nil
}

// Verify queries the gateway for the final status of a transaction
func (s *PaystackService) Verify(reference string) (*PaystackVerifyData, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	req, err := http.NewRequest(http.MethodGet, s.config.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call Paystack verify endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	var data PaystackVerifyData
	if err := s.decode(resp, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// VerifyWebhookSignature checks the HMAC-SHA512 signature Paystack sends in
// the x-paystack-signature header against the raw request body.
func (s *PaystackService) VerifyWebhookSignature(signature string, body []byte) bool {
	mac := hmac.New(sha512.New, []byte(s.config.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook decodes a webhook body
func (s *PaystackService) ParseWebhook(body []byte) (*PaystackWebhookEvent, error) {
	var event PaystackWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.Data.Reference == "" {
		return nil, fmt.Errorf("webhook missing transaction reference")
	}
	return &event, nil
}

// AmountFromMinorUnits converts a gateway amount back to major units
func AmountFromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

func (s *PaystackService) post(path string, body interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.config.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call Paystack endpoint")
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	return s.decode(resp, out)
}

func (s *PaystackService) decode(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(body),
		}).Error("Paystack returned non-OK status")
		return fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !envelope.Status {
		return fmt.Errorf("payment gateway error: %s", envelope.Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}
