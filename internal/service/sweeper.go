package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/logger"
)

// Sweeper releases seats whose holds have lapsed.  There is no timer; it
// runs at the start of the read and write paths that care about seat state.
type Sweeper struct {
	store *Store
	clock clock.Clock
	log   *logger.Logger
}

func NewSweeper(store *Store, clk clock.Clock, log *logger.Logger) *Sweeper {
	return &Sweeper{store: store, clock: clk, log: log}
}

// Sweep runs SweepTx in its own transaction and returns the number of
// seats released.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	var released int
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		released, err = s.SweepTx(ctx, tx, s.clock.Now())
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.LogSweep(ctx, released)
	return released, nil
}

// SweepTx deletes every reservation that expired strictly before now and
// frees its seat unless the seat has a booking.  A seat is only freed by
// the caller whose delete removed the row, so concurrent sweeps release
// each seat at most once.
func (s *Sweeper) SweepTx(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	expired, err := s.store.Reservations.ListExpiredTx(ctx, tx, now)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, r := range expired {
		deleted, err := s.store.Reservations.DeleteExpiredTx(ctx, tx, r.ID, now)
		if err != nil {
			return 0, err
		}
		if !deleted {
			continue
		}
		if err := s.store.Seats.FreeIfUnbookedTx(ctx, tx, r.SeatID); err != nil {
			return 0, err
		}
		released++
	}
	return released, nil
}
