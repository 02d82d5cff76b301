package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

const defaultHoldTTL = 5 * time.Minute

// Ledger places time-boxed seat holds.
type Ledger struct {
	store   *Store
	sweeper *Sweeper
	clock   clock.Clock
	log     *logger.Logger
	holdTTL time.Duration
}

type LedgerOption func(*Ledger)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.holdTTL = d
		}
	}
}

func NewLedger(store *Store, sweeper *Sweeper, clk clock.Clock, log *logger.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:   store,
		sweeper: sweeper,
		clock:   clk,
		log:     log,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HoldTTL is the lifetime given to new holds.
func (l *Ledger) HoldTTL() time.Duration { return l.holdTTL }

// HoldResult splits a hold request into the seats now held by the caller
// and the labels of seats that were taken.
type HoldResult struct {
	Placed    []uint64 `json:"placed"`
	Conflicts []string `json:"conflicts"`
}

// PlaceHold holds every free seat of seatIDs for userID.  Seats that are
// taken are reported in Conflicts without failing the batch.  A seat the
// caller already holds is reported as placed and its expiry is left as is.
func (l *Ledger) PlaceHold(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (HoldResult, error) {
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return HoldResult{}, invalid("no seats selected")
	}
	if userID == 0 {
		return HoldResult{}, invalid("missing user")
	}

	now := l.clock.Now()
	var (
		result HoldResult
		swept  int
	)

	err := l.store.WithTxRetry(ctx, func(tx *sql.Tx) error {
		result = HoldResult{Placed: []uint64{}, Conflicts: []string{}}
		var err error
		if swept, err = l.sweeper.SweepTx(ctx, tx, now); err != nil {
			return err
		}

		seats, err := l.store.Seats.GetByIDsTx(ctx, tx, showtimeID, ids)
		if err != nil {
			return err
		}
		if len(seats) != len(ids) {
			return invalid("seats do not belong to showtime %d", showtimeID)
		}
		labels := make(map[uint64]string, len(seats))
		for _, s := range seats {
			labels[s.ID] = s.Label
		}

		for _, seatID := range ids {
			won, err := l.store.Seats.MarkBookedIfFreeTx(ctx, tx, seatID, showtimeID)
			if err != nil {
				return err
			}
			if won {
				// a row left behind for a seat that is free again is stale
				if _, err := l.store.Reservations.DeleteBySeatTx(ctx, tx, seatID, showtimeID); err != nil {
					return err
				}
				res := model.Reservation{
					UserID:     userID,
					SeatID:     seatID,
					ShowtimeID: showtimeID,
					ExpiresAt:  now.Add(l.holdTTL),
					CreatedAt:  now,
				}
				if err := l.store.Reservations.CreateTx(ctx, tx, &res); err != nil {
					return err
				}
				result.Placed = append(result.Placed, seatID)
				continue
			}

			held, err := l.heldByTx(ctx, tx, userID, seatID, showtimeID, now)
			if err != nil {
				return err
			}
			if held {
				result.Placed = append(result.Placed, seatID)
			} else {
				result.Conflicts = append(result.Conflicts, labels[seatID])
			}
		}
		return nil
	})
	if err != nil {
		return HoldResult{}, err
	}

	l.log.LogSweep(ctx, swept)
	l.log.LogHoldPlaced(ctx, userID, showtimeID, result.Placed, result.Conflicts)
	return result, nil
}

// heldByTx reports whether userID has an unexpired hold on the seat.
func (l *Ledger) heldByTx(ctx context.Context, tx *sql.Tx, userID, seatID, showtimeID uint64, now time.Time) (bool, error) {
	r, err := l.store.Reservations.GetBySeatTx(ctx, tx, seatID, showtimeID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.UserID == userID && r.ActiveAt(now), nil
}

// dedupe returns the distinct ids in ascending order.  Every transaction
// touches seat rows in this order so that two requests for overlapping
// seats cannot lock them crosswise.
func dedupe(ids []uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
