package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
)

func newBookingService(db *sqlx.DB) *BookingService {
	logger := testLogger()
	promotionRepo := database.NewPromotionRepository(db)
	return NewBookingService(
		database.NewBookingRepository(db),
		database.NewSeatRepository(db),
		database.NewTripRepository(db),
		promotionRepo,
		database.NewPaymentRepository(db),
		NewPromotionService(promotionRepo, logger),
		NewNoopNotifier(),
		logger,
	)
}

func tripDetailRows(tripID string, price float64, status models.TripStatus, departure time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "route_id", "vehicle_id", "driver_id",
		"departure_time", "arrival_time", "price", "status",
		"created_at", "updated_at",
		"route_origin", "route_destination",
		"vehicle_name", "vehicle_plate", "seat_capacity", "driver_name",
	}).AddRow(
		tripID, "route-1", "vehicle-1", "driver-1",
		departure, departure.Add(5*time.Hour), price, status,
		now, now,
		"Lagos", "Benin City",
		"Sienna 1", "ABC-123-XY", 7, "John Driver",
	)
}

func bookingRows(bookingID, tripID string, status models.BookingStatus, paymentStatus models.PaymentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "booking_number", "trip_id", "user_id", "passenger_count",
		"contact_info", "passenger_details", "seat_numbers",
		"total_amount", "discount_amount", "promotion_id",
		"payment_status", "status", "cancellation_reason",
		"created_at", "updated_at",
	}).AddRow(
		bookingID, "BK-123456", tripID, nil, 2,
		[]byte(`{"email":"jane@example.com"}`), []byte(`[]`), []byte(`{A1,A2}`),
		20000.0, 0.0, nil,
		paymentStatus, status, nil,
		now, now,
	)
}

func createRequest() *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		TripID:         "trip-1",
		SeatNumbers:    []string{"A1", "A2"},
		PassengerCount: 2,
		ContactInfo:    models.JSONMap{"email": "jane@example.com", "phone": "+2348012345678"},
	}
}

func TestCreateBooking(t *testing.T) {
	departure := time.Now().Add(48 * time.Hour)

	t.Run("Success Without Promotion", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)
		now := time.Now()

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, departure))
		mock.ExpectQuery(`SELECT seat_number`).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`UPDATE seats`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		detail, err := service.Create(createRequest())
		require.NoError(t, err)
		assert.Equal(t, 20000.0, detail.TotalAmount)
		assert.Equal(t, 0.0, detail.DiscountAmount)
		assert.Equal(t, models.BookingStatusPending, detail.Status)
		assert.Equal(t, models.PaymentStatusPending, detail.PaymentStatus)
		require.NotNil(t, detail.Trip)
		assert.Equal(t, "Lagos - Benin City", detail.Trip.RouteName())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success With Promotion", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)
		now := time.Now()
		code := "SAVE10"

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, departure))
		mock.ExpectQuery(`SELECT seat_number`).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		// 10% of 20000 capped at 1500
		mock.ExpectQuery(`SELECT`).
			WithArgs(code).
			WillReturnRows(promotionRows(validPromotion()))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`UPDATE seats`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()
		// Usage slot consumed after the booking transaction commits
		mock.ExpectExec(`UPDATE promotions`).
			WithArgs("promo-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := createRequest()
		req.PromotionCode = &code

		detail, err := service.Create(req)
		require.NoError(t, err)
		assert.Equal(t, 1500.0, detail.DiscountAmount)
		assert.Equal(t, 18500.0, detail.TotalAmount)
		require.NotNil(t, detail.Promotion)
		assert.Equal(t, "promo-1", detail.Promotion.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid Promotion Aborts Booking", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)
		code := "SAVE10"

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, departure))
		mock.ExpectQuery(`SELECT seat_number`).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))

		promo := validPromotion()
		promo.IsActive = false
		mock.ExpectQuery(`SELECT`).
			WithArgs(code).
			WillReturnRows(promotionRows(promo))

		req := createRequest()
		req.PromotionCode = &code

		_, err := service.Create(req)
		assert.ErrorIs(t, err, ErrConflict)

		// No booking insert ever happened
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat Race Lost In Transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)
		now := time.Now()

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, departure))
		mock.ExpectQuery(`SELECT seat_number`).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		// A concurrent booking claimed one of the seats first
		mock.ExpectExec(`UPDATE seats`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		_, err := service.Create(createRequest())
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "seats already booked")
	})

	t.Run("Seats Visibly Taken Up Front", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, departure))
		mock.ExpectQuery(`SELECT seat_number`).
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("A1"))

		_, err := service.Create(createRequest())
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "A1")
	})

	t.Run("Trip Not Bookable", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusCancelled, departure))

		_, err := service.Create(createRequest())
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Trip Departed", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, time.Now().Add(-time.Hour)))

		_, err := service.Create(createRequest())
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Seat Count Mismatch", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := newBookingService(db)

		req := createRequest()
		req.PassengerCount = 3

		_, err := service.Create(req)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestCancelBooking(t *testing.T) {
	departure := time.Now().Add(48 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)
		reason := "change of plans"

		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE seats`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()
		// Expansion after the cancel
		mock.ExpectQuery(`SELECT t.id`).
			WithArgs("trip-1").
			WillReturnRows(tripDetailRows("trip-1", 10000, models.TripStatusActive, departure))
		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		detail, err := service.Cancel("booking-1", &reason)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, detail.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusCancelled, models.PaymentStatusPending))

		_, err := service.Cancel("booking-1", nil)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Not Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := service.Cancel("missing", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateBookingStatus(t *testing.T) {
	t.Run("Customer Role Rejected", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := newBookingService(db)

		req := &models.UpdateBookingStatusRequest{Status: models.BookingStatusConfirmed}
		_, err := service.UpdateStatus("booking-1", req, RoleCustomer)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestHardDeleteBooking(t *testing.T) {
	t.Run("Customer Role Rejected", func(t *testing.T) {
		db, _ := newMockDB(t)
		service := newBookingService(db)

		err := service.HardDelete("booking-1", RoleCustomer)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Paid Booking Rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusConfirmed, models.PaymentStatusPaid))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := service.HardDelete("booking-1", RoleAdmin)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "cancel it instead")

		// No delete statements were issued
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paid Attempt Behind Abandoned Pending Row Rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		// Two attempt rows exist: an abandoned pending one and a paid one.
		// The existence check must find the paid attempt regardless of which
		// row a single-row lookup would have returned.
		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusConfirmed, models.PaymentStatusPaid))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := service.HardDelete("booking-1", RoleAdmin)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale Booking Payment Status Still Rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		// No paid attempt row, but the booking itself says paid: the guard
		// trusts either signal.
		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusConfirmed, models.PaymentStatusPaid))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := service.HardDelete("booking-1", RoleAdmin)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unpaid Booking Deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		service := newBookingService(db)

		mock.ExpectQuery(`SELECT`).
			WithArgs("booking-1").
			WillReturnRows(bookingRows("booking-1", "trip-1", models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM seats`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.HardDelete("booking-1", RoleAdmin)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingStats(t *testing.T) {
	db, mock := newMockDB(t)
	service := newBookingService(db)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("confirmed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	stats, err := service.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 7, stats.Confirmed)
	assert.Equal(t, 2, stats.Cancelled)
	assert.Equal(t, 12, stats.Total)
}
