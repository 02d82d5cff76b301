package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/session"
)

// SessionStore persists checkout sessions with a TTL.  Get returns
// session.ErrNotFound for unknown or expired tokens.
type SessionStore interface {
	Save(ctx context.Context, cs model.CheckoutSession, ttl time.Duration) error
	Get(ctx context.Context, token string) (*model.CheckoutSession, error)
	Delete(ctx context.Context, token string) error
}

const defaultSessionTTL = 10 * time.Minute

// Checkout links a successful hold to the later payment callback.
type Checkout struct {
	sessions SessionStore
	store    *Store
	sweeper  *Sweeper
	clock    clock.Clock
	log      *logger.Logger
	ttl      time.Duration
}

func NewCheckout(sessions SessionStore, store *Store, sweeper *Sweeper, clk clock.Clock, log *logger.Logger, ttl time.Duration) *Checkout {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Checkout{sessions: sessions, store: store, sweeper: sweeper, clock: clk, log: log, ttl: ttl}
}

// Begin records the seats the user is about to pay for.  Callers only begin
// a checkout once PlaceHold reported no conflicts for the whole set.
func (c *Checkout) Begin(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (*model.CheckoutSession, error) {
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return nil, invalid("no seats selected")
	}
	now := c.clock.Now()
	cs := model.CheckoutSession{
		Token:      uuid.NewString(),
		UserID:     userID,
		ShowtimeID: showtimeID,
		SeatIDs:    ids,
		HeldAt:     now,
		ExpiresAt:  now.Add(c.ttl),
	}
	if err := c.sessions.Save(ctx, cs, c.ttl); err != nil {
		return nil, storeErr(err)
	}
	return &cs, nil
}

// Resolve returns the session behind token after checking it against the
// reservations table.  It fails with ErrExpiredSession when the session is
// gone, belongs to another user or showtime, or any of its seats is no
// longer held by the user.  A showtimeID of zero skips the showtime check.
func (c *Checkout) Resolve(ctx context.Context, token string, userID, showtimeID uint64) (*model.CheckoutSession, error) {
	cs, err := c.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrExpiredSession
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if cs.UserID != userID || (showtimeID != 0 && cs.ShowtimeID != showtimeID) {
		return nil, ErrExpiredSession
	}

	holds, err := c.store.Reservations.ListBySeats(ctx, cs.ShowtimeID, cs.SeatIDs)
	if err != nil {
		return nil, storeErr(err)
	}
	now := c.clock.Now()
	active := make(map[uint64]bool, len(holds))
	for _, h := range holds {
		if h.UserID == userID && h.ActiveAt(now) {
			active[h.SeatID] = true
		}
	}
	for _, id := range cs.SeatIDs {
		if !active[id] {
			if _, err := c.sweeper.Sweep(ctx); err != nil {
				c.log.ErrorWithContext(ctx, "sweep after stale checkout failed", err, map[string]any{"token": token})
			}
			return nil, ErrExpiredSession
		}
	}
	return cs, nil
}

// Consume deletes the session once the payment outcome is known.
func (c *Checkout) Consume(ctx context.Context, token string) error {
	return storeErr(c.sessions.Delete(ctx, token))
}

// Lookup returns the raw session without revalidation, used to answer
// replayed payment callbacks.
func (c *Checkout) Lookup(ctx context.Context, token string) (*model.CheckoutSession, error) {
	cs, err := c.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrExpiredSession
	}
	return cs, storeErr(err)
}
