package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/database"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/queue"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

const notifyTimeout = 10 * time.Second

// raceError is returned from inside a finalize transaction when a
// concurrent finalize inserted a booking for the seat first.
type raceError struct {
	label string
}

func (e *raceError) Error() string { return "seat " + e.label + " booked concurrently" }

// bookingWriter is the part of the booking repository the finalizer
// writes through.
type bookingWriter interface {
	GetBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Booking, error)
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
}

// Finalizer turns held seats into bookings on payment success and releases
// them on payment failure.
type Finalizer struct {
	store    *Store
	bookings bookingWriter
	clock    clock.Clock
	notifier Notifier
	log      *logger.Logger
}

func NewFinalizer(store *Store, clk clock.Clock, notifier Notifier, log *logger.Logger) *Finalizer {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Finalizer{store: store, bookings: store.Bookings, clock: clk, notifier: notifier, log: log}
}

type FinalizeInput struct {
	UserID      uint64
	ShowtimeID  uint64
	SeatIDs     []uint64
	PaymentRef  string
	AmountCents int64 // reported by the payment provider; zero means unknown
}

// FinalizeResult lists the bookings created by this call and the seats
// that were already booked by an earlier call with the same payment ref.
type FinalizeResult struct {
	Bookings []model.Booking
	Replayed []uint64
}

// Finalize books every seat of in for the user in one transaction.  Seats
// already booked under the same user and payment ref are replays and
// succeed without writing.  A seat booked by anyone else fails the whole
// call with *ConflictError.  The seat's reservation is removed whoever
// holds it: the payment is authoritative.
func (f *Finalizer) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	in.PaymentRef = strings.TrimSpace(in.PaymentRef)
	in.SeatIDs = dedupe(in.SeatIDs)
	switch {
	case len(in.SeatIDs) == 0:
		return FinalizeResult{}, invalid("no seats selected")
	case in.PaymentRef == "":
		return FinalizeResult{}, invalid("payment_ref is required")
	case in.UserID == 0:
		return FinalizeResult{}, invalid("missing user")
	}

	var (
		res FinalizeResult
		ev  *queue.BookingConfirmedEvent
		err error
	)
	// one retry: the second transaction sees the concurrent booking and
	// classifies it as a replay or a conflict
	var raced *raceError
	for attempt := 0; attempt < 2; attempt++ {
		res, ev, err = f.finalizeOnce(ctx, in)
		if !errors.As(err, &raced) {
			break
		}
	}
	if errors.As(err, &raced) {
		return FinalizeResult{}, &ConflictError{Labels: []string{raced.label}}
	}
	if err != nil {
		return FinalizeResult{}, err
	}

	f.log.LogBookingFinalized(ctx, in.UserID, in.ShowtimeID, in.PaymentRef, len(res.Bookings), len(res.Replayed))
	if ev != nil {
		go f.notify(context.WithoutCancel(ctx), *ev)
	}
	return res, nil
}

func (f *Finalizer) finalizeOnce(ctx context.Context, in FinalizeInput) (FinalizeResult, *queue.BookingConfirmedEvent, error) {
	var (
		res FinalizeResult
		ev  *queue.BookingConfirmedEvent
	)
	now := f.clock.Now()

	err := f.store.WithTxRetry(ctx, func(tx *sql.Tx) error {
		res = FinalizeResult{Bookings: []model.Booking{}, Replayed: []uint64{}}
		ev = nil
		user, err := f.store.Users.GetByIDTx(ctx, tx, in.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("unknown user %d", in.UserID)
		}
		if err != nil {
			return err
		}
		st, err := f.store.Showtimes.GetByIDTx(ctx, tx, in.ShowtimeID)
		if err != nil {
			return err
		}
		seats, err := f.store.Seats.GetByIDsTx(ctx, tx, in.ShowtimeID, in.SeatIDs)
		if err != nil {
			return err
		}
		if len(seats) != len(in.SeatIDs) {
			return invalid("seats do not belong to showtime %d", in.ShowtimeID)
		}

		var fresh []model.Seat
		var conflicts []string
		for _, s := range seats {
			b, err := f.bookings.GetBySeatTx(ctx, tx, s.ID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				fresh = append(fresh, s)
			case err != nil:
				return err
			case b.UserID == in.UserID && b.PaymentRef == in.PaymentRef:
				res.Replayed = append(res.Replayed, s.ID)
			default:
				conflicts = append(conflicts, s.Label)
			}
		}
		if len(conflicts) > 0 {
			return &ConflictError{Labels: conflicts}
		}

		labels := make([]string, 0, len(fresh))
		var total int64
		for _, s := range fresh {
			if _, err := f.store.Reservations.DeleteBySeatTx(ctx, tx, s.ID, in.ShowtimeID); err != nil {
				return err
			}
			b := model.Booking{
				UserID:        in.UserID,
				SeatID:        s.ID,
				MovieID:       st.MovieID,
				ShowtimeID:    st.ID,
				AmountCents:   st.PriceCents,
				PaymentStatus: model.PaymentCompleted,
				PaymentRef:    in.PaymentRef,
				BookedAt:      now,
			}
			if err := f.bookings.CreateTx(ctx, tx, &b); err != nil {
				if database.IsDuplicateKey(err) {
					return &raceError{label: s.Label}
				}
				return err
			}
			if err := f.store.Seats.ForceBookedTx(ctx, tx, s.ID); err != nil {
				return err
			}
			res.Bookings = append(res.Bookings, b)
			labels = append(labels, s.Label)
			total += b.AmountCents
		}
		if len(fresh) == 0 {
			return nil
		}

		movie, err := f.store.Movies.GetByIDTx(ctx, tx, st.MovieID)
		if err != nil {
			return err
		}
		amount := in.AmountCents
		if amount <= 0 {
			amount = total
		}
		ev = &queue.BookingConfirmedEvent{
			UserID:        in.UserID,
			UserEmail:     user.Email,
			UserName:      user.Name,
			MovieName:     movie.Name,
			ShowtimeID:    st.ID,
			ShowtimeLabel: st.Label(),
			Theater:       st.TheaterName,
			SeatLabels:    labels,
			AmountCents:   amount,
			PaymentRef:    in.PaymentRef,
			ConfirmedAt:   now.Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	return res, ev, nil
}

func (f *Finalizer) notify(ctx context.Context, ev queue.BookingConfirmedEvent) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := f.notifier.NotifyBookingConfirmed(ctx, ev); err != nil {
		f.log.ErrorWithContext(ctx, "booking confirmation not delivered", err, map[string]any{
			"user_id":     ev.UserID,
			"payment_ref": ev.PaymentRef,
		})
	}
}

// Release drops the user's holds on seatIDs and frees those seats.  Seats
// that are booked are left untouched, so releasing after a finalize is a
// no-op.  It returns the number of seats freed.
func (f *Finalizer) Release(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (int, error) {
	ids := dedupe(seatIDs)
	var released int
	err := f.store.WithTxRetry(ctx, func(tx *sql.Tx) error {
		released = 0
		for _, seatID := range ids {
			_, err := f.bookings.GetBySeatTx(ctx, tx, seatID)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			deleted, err := f.store.Reservations.DeleteBySeatAndUserTx(ctx, tx, seatID, showtimeID, userID)
			if err != nil {
				return err
			}
			if !deleted {
				continue
			}
			if err := f.store.Seats.FreeIfUnbookedTx(ctx, tx, seatID); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	f.log.LogSeatsReleased(ctx, userID, showtimeID, released)
	return released, nil
}
