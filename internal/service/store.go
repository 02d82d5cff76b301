// Package service implements the seat hold state machine: the expiry
// sweeper, the reservation ledger, checkout sessions and the booking
// finalizer.  All coordination between concurrent requests happens through
// conditional updates inside SQL transactions.
package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bookmyseat/internal/database"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

// Store bundles the database handle with the repositories the services use.
type Store struct {
	DB           *sql.DB
	Users        *repository.UserRepo
	Movies       *repository.MovieRepo
	Showtimes    *repository.ShowtimeRepo
	Seats        *repository.SeatRepo
	Reservations *repository.ReservationRepo
	Bookings     *repository.BookingRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:           db,
		Users:        repository.NewUserRepo(db),
		Movies:       repository.NewMovieRepo(db),
		Showtimes:    repository.NewShowtimeRepo(db),
		Seats:        repository.NewSeatRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Bookings:     repository.NewBookingRepo(db),
	}
}

// WithTxRetry is WithTx, run once more when the first attempt was aborted
// as a deadlock.  fn must reset any state it accumulates.
func (s *Store) WithTxRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := s.WithTx(ctx, fn)
	if database.IsDeadlock(err) {
		err = s.WithTx(ctx, fn)
	}
	return err
}

// WithTx runs fn in a transaction and commits when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	committed = true
	return nil
}
