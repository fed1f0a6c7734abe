package services

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engracedsmile/travel-backend/internal/config"
	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
)

const testSecretKey = "sk_test_secret"

func newPaymentService(db *sqlx.DB, gatewayURL string) *PaymentService {
	logger := testLogger()
	gateway := NewPaystackService(&config.PaymentConfig{
		BaseURL:   gatewayURL,
		SecretKey: testSecretKey,
	}, logger)
	return NewPaymentService(
		database.NewPaymentRepository(db),
		database.NewBookingRepository(db),
		gateway,
		NewNoopNotifier(),
		nil,
		logger,
	)
}

func paymentRows(reference string, status models.TransactionStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "reference", "status", "method",
		"paid_at", "failure_reason", "created_at", "updated_at",
	}).AddRow(
		"payment-1", "booking-1", 20000.0, reference, status, nil,
		nil, nil, now, now,
	)
}

func webhookSignature(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInitializePayment(t *testing.T) {
	t.Run("Success Converts To Minor Units", func(t *testing.T) {
		var gotAmount int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req PaystackInitializeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotAmount = req.Amount

			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Authorization URL created",
				"data": map[string]interface{}{
					"authorization_url": "https://checkout.paystack.com/abc123",
					"access_code":       "abc123",
					"reference":         req.Reference,
				},
			})
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)
		now := time.Now()

		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		resp, err := service.Initialize("booking-1", "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc123", resp.AuthorizationURL)
		assert.Contains(t, resp.Reference, "ENG_booking-1_")
		assert.Equal(t, models.TransactionStatusPending, resp.Payment.Status)

		// 20000.00 major units on the wire as 2000000 kobo
		assert.Equal(t, int64(2000000), gotAmount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Failure Leaves No Payment Row", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)

		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusPending, models.PaymentStatusPending))

		_, err := service.Initialize("booking-1", "jane@example.com")
		assert.ErrorIs(t, err, ErrUpstream)

		// No INSERT was attempted
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerifyPayment(t *testing.T) {
	t.Run("Terminal Payment Short-Circuits Gateway", func(t *testing.T) {
		var gatewayCalls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&gatewayCalls, 1)
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)

		mock.ExpectQuery(`SELECT`).
			WithArgs("ENG_ref_1").
			WillReturnRows(paymentRows("ENG_ref_1", models.TransactionStatusPaid))

		resp, err := service.Verify("ENG_ref_1")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "payment already processed", resp.Message)
		assert.Equal(t, int32(0), atomic.LoadInt32(&gatewayCalls))
	})

	t.Run("Successful Verify Settles Payment And Booking", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]interface{}{
					"status":           "success",
					"reference":        "ENG_ref_1",
					"amount":           2000000,
					"channel":          "card",
					"gateway_response": "Successful",
				},
			})
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)

		mock.ExpectQuery(`SELECT`).
			WithArgs("ENG_ref_1").
			WillReturnRows(paymentRows("ENG_ref_1", models.TransactionStatusPending))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		// Booking reload for the payment notification
		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusConfirmed, models.PaymentStatusPaid))

		resp, err := service.Verify("ENG_ref_1")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, models.TransactionStatusPaid, resp.Payment.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent Settle Skips Side Effects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]interface{}{
					"status":    "success",
					"reference": "ENG_ref_1",
					"amount":    2000000,
					"channel":   "card",
				},
			})
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)

		mock.ExpectQuery(`SELECT`).
			WithArgs("ENG_ref_1").
			WillReturnRows(paymentRows("ENG_ref_1", models.TransactionStatusPending))
		mock.ExpectBegin()
		// Another delivery settled this reference between the read and here
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		resp, err := service.Verify("ENG_ref_1")
		require.NoError(t, err)
		assert.True(t, resp.Success)

		// No booking update and no notification reload happened
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Amount Mismatch Is Flagged", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]interface{}{
					"status":    "success",
					"reference": "ENG_ref_1",
					"amount":    1000000,
					"channel":   "card",
				},
			})
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		logger, hook := logrustest.NewNullLogger()
		gateway := NewPaystackService(&config.PaymentConfig{
			BaseURL:   server.URL,
			SecretKey: testSecretKey,
		}, logger)
		service := NewPaymentService(
			database.NewPaymentRepository(db),
			database.NewBookingRepository(db),
			gateway, NewNoopNotifier(), nil, logger,
		)

		// Recorded amount is 20000.00 but the gateway settled 10000.00
		mock.ExpectQuery(`SELECT`).
			WithArgs("ENG_ref_1").
			WillReturnRows(paymentRows("ENG_ref_1", models.TransactionStatusPending))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusConfirmed, models.PaymentStatusPaid))

		resp, err := service.Verify("ENG_ref_1")
		require.NoError(t, err)
		assert.True(t, resp.Success)

		var flagged bool
		for _, entry := range hook.Entries {
			if entry.Level == logrus.WarnLevel &&
				entry.Message == "Gateway settled amount differs from recorded payment amount" {
				flagged = true
				assert.Equal(t, 10000.0, entry.Data["gateway_amount"])
				assert.Equal(t, 20000.0, entry.Data["recorded_amount"])
			}
		}
		assert.True(t, flagged)
	})

	t.Run("Failed Transaction Marked Failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]interface{}{
					"status":           "failed",
					"reference":        "ENG_ref_1",
					"gateway_response": "Declined",
				},
			})
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)

		mock.ExpectQuery(`SELECT`).
			WithArgs("ENG_ref_1").
			WillReturnRows(paymentRows("ENG_ref_1", models.TransactionStatusPending))
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := service.Verify("ENG_ref_1")
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, models.TransactionStatusFailed, resp.Payment.Status)
		require.NotNil(t, resp.Payment.FailureReason)
		assert.Equal(t, "Declined", *resp.Payment.FailureReason)
	})

	t.Run("Unknown Reference", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")

		mock.ExpectQuery(`SELECT`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := service.Verify("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Invalid Signature Rejected", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")

		body := []byte(`{"event":"charge.success","data":{"reference":"ENG_ref_1"}}`)
		err := service.HandleWebhook("bad-signature", body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("Ignores Other Events", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")

		body := []byte(`{"event":"transfer.success","data":{"reference":"ENG_ref_1"}}`)
		err := service.HandleWebhook(webhookSignature(body), body)
		require.NoError(t, err)

		// No database access for ignored events
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Redelivery Of Settled Payment Is No-Op", func(t *testing.T) {
		var gatewayCalls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&gatewayCalls, 1)
		}))
		defer server.Close()

		db, mock := newMockDB(t)
		service := newPaymentService(db, server.URL)

		mock.ExpectQuery(`SELECT`).
			WithArgs("ENG_ref_1").
			WillReturnRows(paymentRows("ENG_ref_1", models.TransactionStatusPaid))

		body := []byte(`{"event":"charge.success","data":{"reference":"ENG_ref_1"}}`)
		err := service.HandleWebhook(webhookSignature(body), body)
		require.NoError(t, err)

		// Terminal payment short-circuits before the gateway re-verify
		assert.Equal(t, int32(0), atomic.LoadInt32(&gatewayCalls))
	})

	t.Run("Missing Reference Rejected", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")

		body := []byte(`{"event":"charge.success","data":{}}`)
		err := service.HandleWebhook(webhookSignature(body), body)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestRecordPayment(t *testing.T) {
	validRequest := func() *models.RecordPaymentRequest {
		return &models.RecordPaymentRequest{
			BookingID: "booking-1",
			Amount:    20000,
			Reference: "POS-001",
			Status:    models.TransactionStatusPaid,
		}
	}

	t.Run("Customer Role Rejected", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")

		_, err := service.RecordPayment(validRequest(), RoleCustomer)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Existing Reference Returned Unchanged", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")

		mock.ExpectQuery(`SELECT`).
			WithArgs("POS-001").
			WillReturnRows(paymentRows("POS-001", models.TransactionStatusPaid))

		payment, err := service.RecordPayment(validRequest(), RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, "payment-1", payment.ID)

		// No insert happened
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("New Paid Record Sets PaidAt", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newPaymentService(db, "http://127.0.0.1:0")
		now := time.Now()

		mock.ExpectQuery(`SELECT`).
			WithArgs("POS-001").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		payment, err := service.RecordPayment(validRequest(), RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusPaid, payment.Status)
		assert.NotNil(t, payment.PaidAt)
	})
}
