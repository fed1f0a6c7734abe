package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateBookingRequestValidate(t *testing.T) {
	base := func() *CreateBookingRequest {
		return &CreateBookingRequest{
			TripID:         "trip-1",
			SeatNumbers:    []string{"A1", "A2"},
			PassengerCount: 2,
			ContactInfo:    JSONMap{"email": "jane@example.com", "phone": "08012345678"},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("Seat Count Mismatch", func(t *testing.T) {
		req := base()
		req.PassengerCount = 3
		assert.Error(t, req.Validate())
	})

	t.Run("Duplicate Seats", func(t *testing.T) {
		req := base()
		req.SeatNumbers = []string{"A1", "A1"}
		assert.Error(t, req.Validate())
	})

	t.Run("Too Many Passengers", func(t *testing.T) {
		req := base()
		req.PassengerCount = 11
		req.SeatNumbers = []string{"A1", "A2", "A3", "A4", "B1", "B2", "B3", "B4", "C1", "C2", "C3"}
		assert.Error(t, req.Validate())
	})

	t.Run("Empty Seat Number", func(t *testing.T) {
		req := base()
		req.SeatNumbers = []string{"A1", ""}
		assert.Error(t, req.Validate())
	})
}

func TestContactEmail(t *testing.T) {
	req := &CreateBookingRequest{ContactInfo: JSONMap{"email": "jane@example.com"}}
	assert.Equal(t, "jane@example.com", req.ContactEmail())

	noEmail := &CreateBookingRequest{ContactInfo: JSONMap{"phone": "08012345678"}}
	assert.Equal(t, "", noEmail.ContactEmail())

	var nilInfo CreateBookingRequest
	assert.Equal(t, "", nilInfo.ContactEmail())
}

func TestBookingCanBeCancelled(t *testing.T) {
	assert.True(t, (&Booking{Status: BookingStatusPending}).CanBeCancelled())
	assert.True(t, (&Booking{Status: BookingStatusConfirmed}).CanBeCancelled())
	assert.False(t, (&Booking{Status: BookingStatusCancelled}).CanBeCancelled())
}

func TestUpdateBookingStatusRequestValidate(t *testing.T) {
	assert.NoError(t, (&UpdateBookingStatusRequest{Status: BookingStatusConfirmed}).Validate())
	assert.Error(t, (&UpdateBookingStatusRequest{Status: "shipped"}).Validate())
}
