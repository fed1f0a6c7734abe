package database

import (
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestClaimTx(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSeatRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seats`).
			WithArgs("booking-1", "trip-1", "A1", "A2").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.ClaimTx(tx, "trip-1", []string{"A1", "A2"}, "booking-1")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat Already Booked", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSeatRepository(db)

		// Only one of the two requested seats is still free
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seats`).
			WithArgs("booking-1", "trip-1", "A1", "A2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.ClaimTx(tx, "trip-1", []string{"A1", "A2"}, "booking-1")
		assert.ErrorIs(t, err, ErrSeatConflict)
		require.NoError(t, tx.Rollback())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSeatRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE seats`).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.ClaimTx(tx, "trip-1", []string{"A1"}, "booking-1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrSeatConflict)
		require.NoError(t, tx.Rollback())
	})
}

func TestCheckAvailability(t *testing.T) {
	t.Run("All Seats Free", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSeatRepository(db)

		mock.ExpectQuery(`SELECT seat_number`).
			WithArgs("trip-1", "A1", "A2").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))

		availability, err := repo.CheckAvailability("trip-1", []string{"A1", "A2"})
		require.NoError(t, err)
		assert.True(t, availability.Available)
		assert.Empty(t, availability.Conflicting)
	})

	t.Run("Conflicting Seat", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSeatRepository(db)

		mock.ExpectQuery(`SELECT seat_number`).
			WithArgs("trip-1", "A1", "A2").
			WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("A2"))

		availability, err := repo.CheckAvailability("trip-1", []string{"A1", "A2"})
		require.NoError(t, err)
		assert.False(t, availability.Available)
		assert.Equal(t, []string{"A2"}, availability.Conflicting)
	})

	t.Run("Empty Request", func(t *testing.T) {
		db, _ := newMockDB(t)
		repo := NewSeatRepository(db)

		availability, err := repo.CheckAvailability("trip-1", nil)
		require.NoError(t, err)
		assert.True(t, availability.Available)
	})
}

func TestRelease(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSeatRepository(db)

	mock.ExpectExec(`UPDATE seats`).
		WithArgs("booking-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.Release("booking-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
