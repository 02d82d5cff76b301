package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/database"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/queue"
	"github.com/iliyamo/bookmyseat/internal/session"
)

var testStart = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	events chan queue.BookingConfirmedEvent
}

func (r *recordingNotifier) NotifyBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	r.events <- ev
	return nil
}

type testEnv struct {
	db        *sql.DB
	store     *Store
	clock     *clock.FakeClock
	sweeper   *Sweeper
	ledger    *Ledger
	checkout  *Checkout
	finalizer *Finalizer
	catalog   *Catalog
	notified  *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "booking.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.Fake(testStart)
	log := logger.Discard()
	store := NewStore(db)
	sweeper := NewSweeper(store, clk, log)
	notified := &recordingNotifier{events: make(chan queue.BookingConfirmedEvent, 16)}
	return &testEnv{
		db:        db,
		store:     store,
		clock:     clk,
		sweeper:   sweeper,
		ledger:    NewLedger(store, sweeper, clk, log),
		checkout:  NewCheckout(session.NewMemoryStore(clk), store, sweeper, clk, log, 10*time.Minute),
		finalizer: NewFinalizer(store, clk, notified, log),
		catalog:   NewCatalog(store, sweeper),
		notified:  notified,
	}
}

func (e *testEnv) user(t *testing.T, email string) uint64 {
	t.Helper()
	id, err := e.store.Users.Create(context.Background(), email, "User "+email, "secret", model.RoleCustomer, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

// showtime creates a movie and a 2x3 showtime (A1..A3, B1..B3) priced at
// 150 cents per seat and returns the showtime id and a label -> seat id map.
func (e *testEnv) showtime(t *testing.T) (uint64, map[string]uint64) {
	t.Helper()
	ctx := context.Background()
	m := &model.Movie{Name: "Dune", Genre: "sci-fi", Language: "english", TrailerURL: "https://youtu.be/x"}
	if err := e.catalog.CreateMovie(ctx, m); err != nil {
		t.Fatalf("create movie: %v", err)
	}
	st, err := e.catalog.CreateShowtime(ctx, ShowtimeInput{
		MovieID:     m.ID,
		TheaterName: "Screen 1",
		StartsAt:    testStart.Add(24 * time.Hour),
		Rows:        2,
		Cols:        3,
		PriceCents:  150,
	})
	if err != nil {
		t.Fatalf("create showtime: %v", err)
	}
	seats, err := e.store.Seats.ListByShowtime(ctx, st.ID)
	if err != nil {
		t.Fatalf("list seats: %v", err)
	}
	ids := make(map[string]uint64, len(seats))
	for _, s := range seats {
		ids[s.Label] = s.ID
	}
	return st.ID, ids
}

func (e *testEnv) seat(t *testing.T, showtimeID, seatID uint64) model.Seat {
	t.Helper()
	seats, err := e.store.Seats.GetByIDs(context.Background(), showtimeID, []uint64{seatID})
	if err != nil || len(seats) != 1 {
		t.Fatalf("get seat %d: %v (%d rows)", seatID, err, len(seats))
	}
	return seats[0]
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

// assertSeatState checks that every seat is booked exactly when it has
// an unexpired hold or a booking.  Call it after a sweep.
func (e *testEnv) assertSeatState(t *testing.T, showtimeID uint64) {
	t.Helper()
	ctx := context.Background()
	seats, err := e.store.Seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		t.Fatalf("list seats: %v", err)
	}
	ids := make([]uint64, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	holds, err := e.store.Reservations.ListBySeats(ctx, showtimeID, ids)
	if err != nil {
		t.Fatalf("list holds: %v", err)
	}
	held := map[uint64]bool{}
	for _, h := range holds {
		if h.ActiveAt(e.clock.Now()) {
			held[h.SeatID] = true
		}
	}
	for _, s := range seats {
		booked := e.count(t, `SELECT COUNT(*) FROM bookings WHERE seat_id = ?`, s.ID) > 0
		if want := held[s.ID] || booked; s.IsBooked != want {
			t.Errorf("seat %s: is_booked = %v, want %v (held=%v booked=%v)", s.Label, s.IsBooked, want, held[s.ID], booked)
		}
	}
}

func (e *testEnv) nextEvent(t *testing.T) queue.BookingConfirmedEvent {
	t.Helper()
	select {
	case ev := <-e.notified.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation event")
		return queue.BookingConfirmedEvent{}
	}
}

func (e *testEnv) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-e.notified.events:
		t.Fatalf("unexpected confirmation event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func isConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	ok := errors.As(err, &ce)
	return ce, ok
}
