package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Template keys known to the mail gateway. The gateway owns the actual
// template rendering; we only send the key and a structured payload.
const (
	TemplateBookingConfirmation = "booking_confirmation"
	TemplateBookingStatus       = "booking_status_update"
	TemplatePaymentConfirmation = "payment_confirmation"
)

// Client sends transactional email through an HTTP mail gateway
type Client struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

// Config holds configuration for the mail gateway client
type Config struct {
	APIURL      string
	APIKey      string
	FromAddress string
}

// NewClient creates a new mail gateway client
func NewClient(config Config) *Client {
	return &Client{
		apiURL: config.APIURL,
		apiKey: config.APIKey,
		from:   config.FromAddress,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// BookingPayload is the structured payload the mail templates consume
type BookingPayload struct {
	BookingNumber  string   `json:"booking_number"`
	Route          string   `json:"route,omitempty"`
	Date           string   `json:"date,omitempty"`
	Time           string   `json:"time,omitempty"`
	PassengerCount int      `json:"passenger_count,omitempty"`
	SeatNumbers    []string `json:"seat_numbers,omitempty"`
	Amount         string   `json:"amount,omitempty"`
	Status         string   `json:"status,omitempty"`
}

type sendRequest struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Template string         `json:"template"`
	Payload  BookingPayload `json:"payload"`
}

type sendResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// IsConfigured returns true if the gateway credentials are present
func (c *Client) IsConfigured() bool {
	return c.apiURL != "" && c.apiKey != ""
}

// Send delivers a templated email to a single recipient
func (c *Client) Send(to, template string, payload BookingPayload) error {
	if !c.IsConfigured() {
		return fmt.Errorf("mail gateway not configured")
	}

	jsonBody, err := json.Marshal(sendRequest{
		From:     c.from,
		To:       to,
		Template: template,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL+"/send", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call mail gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mail response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mail gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var sendResp sendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return fmt.Errorf("failed to parse mail response: %w", err)
	}
	if sendResp.Status != "" && sendResp.Status != "success" && sendResp.Status != "queued" {
		return fmt.Errorf("mail gateway rejected message: %s", sendResp.Message)
	}

	return nil
}
