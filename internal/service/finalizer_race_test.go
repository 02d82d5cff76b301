package service

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

// racingBookings lets a competing finalize commit between the
// classification pass and the insert.  While races is positive CreateTx
// fails with a duplicate key; the rival booking, if any, is then written at
// the start of the next transaction as if it had committed in between.
type racingBookings struct {
	*repository.BookingRepo
	races   int
	rival   func(b model.Booking) *model.Booking
	pending *model.Booking
}

func (r *racingBookings) GetBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Booking, error) {
	if r.pending != nil {
		b := *r.pending
		r.pending = nil
		if err := r.BookingRepo.CreateTx(ctx, tx, &b); err != nil {
			return nil, err
		}
	}
	return r.BookingRepo.GetBySeatTx(ctx, tx, seatID)
}

func (r *racingBookings) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if r.races > 0 {
		r.races--
		if r.rival != nil {
			r.pending = r.rival(*b)
		}
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'seat_id'"}
	}
	return r.BookingRepo.CreateTx(ctx, tx, b)
}

func TestFinalizeConcurrentSameRefIsReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)
	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}

	env.finalizer.bookings = &racingBookings{
		BookingRepo: env.store.Bookings,
		races:       1,
		rival:       func(b model.Booking) *model.Booking { return &b },
	}
	res, err := env.finalizer.Finalize(ctx, FinalizeInput{
		UserID: alice, ShowtimeID: show, SeatIDs: []uint64{seats["A1"]}, PaymentRef: "PAY1",
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(res.Bookings) != 0 || !reflect.DeepEqual(res.Replayed, []uint64{seats["A1"]}) {
		t.Fatalf("result = %+v, want A1 replayed", res)
	}
	if n := env.count(t, `SELECT COUNT(*) FROM bookings WHERE seat_id = ? AND payment_ref = 'PAY1'`, seats["A1"]); n != 1 {
		t.Fatalf("bookings = %d, want 1", n)
	}
	env.assertSeatState(t, show)
	env.assertNoEvent(t)
}

func TestFinalizeConcurrentOtherRefIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice@example.com"), env.user(t, "bob@example.com")
	show, seats := env.showtime(t)
	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}

	env.finalizer.bookings = &racingBookings{
		BookingRepo: env.store.Bookings,
		races:       1,
		rival: func(b model.Booking) *model.Booking {
			b.UserID, b.PaymentRef = bob, "PAY-BOB"
			return &b
		},
	}
	_, err := env.finalizer.Finalize(ctx, FinalizeInput{
		UserID: alice, ShowtimeID: show, SeatIDs: []uint64{seats["A1"]}, PaymentRef: "PAY1",
	})
	var ce *ConflictError
	if !errors.As(err, &ce) || !reflect.DeepEqual(ce.Labels, []string{"A1"}) {
		t.Fatalf("err = %v, want conflict on A1", err)
	}
	if n := env.count(t, `SELECT COUNT(*) FROM bookings WHERE user_id = ?`, alice); n != 0 {
		t.Fatalf("alice bookings = %d, want 0", n)
	}
	env.assertNoEvent(t)
}

func TestFinalizeGivesUpAfterSecondRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)
	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A2"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}

	racing := &racingBookings{BookingRepo: env.store.Bookings, races: 2}
	env.finalizer.bookings = racing
	_, err := env.finalizer.Finalize(ctx, FinalizeInput{
		UserID: alice, ShowtimeID: show, SeatIDs: []uint64{seats["A2"]}, PaymentRef: "PAY1",
	})
	var ce *ConflictError
	if !errors.As(err, &ce) || !reflect.DeepEqual(ce.Labels, []string{"A2"}) {
		t.Fatalf("err = %v, want conflict on A2", err)
	}
	if racing.races != 0 {
		t.Fatalf("attempts left = %d, want both used", racing.races)
	}
	// the hold survives the rolled back attempts
	if !env.seat(t, show, seats["A2"]).IsBooked {
		t.Fatal("A2 should still be held")
	}
	env.assertSeatState(t, show)
}
