package service

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestSweepReleasesLapsedHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice@example.com"), env.user(t, "bob@example.com")
	show, seats := env.showtime(t)

	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A2"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}

	// a hold is still valid at exactly its expiry instant
	env.clock.Advance(defaultHoldTTL)
	if n, err := env.sweeper.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("Sweep at expiry = %d, %v; want 0", n, err)
	}

	env.clock.Advance(time.Minute)
	n, err := env.sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("released = %d, want 1", n)
	}
	if env.seat(t, show, seats["A2"]).IsBooked {
		t.Fatal("A2 still booked after sweep")
	}
	env.assertSeatState(t, show)

	got, err := env.ledger.PlaceHold(ctx, bob, show, []uint64{seats["A2"]})
	if err != nil {
		t.Fatalf("PlaceHold bob: %v", err)
	}
	if !reflect.DeepEqual(got.Placed, []uint64{seats["A2"]}) {
		t.Fatalf("bob placed = %v", got.Placed)
	}
}

func TestPlaceHoldSweepsFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice@example.com"), env.user(t, "bob@example.com")
	show, seats := env.showtime(t)

	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A2"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}
	env.clock.Advance(6 * time.Minute)

	got, err := env.ledger.PlaceHold(ctx, bob, show, []uint64{seats["A2"]})
	if err != nil {
		t.Fatalf("PlaceHold bob: %v", err)
	}
	if !reflect.DeepEqual(got.Placed, []uint64{seats["A2"]}) {
		t.Fatalf("bob result = %+v", got)
	}
	holds, _ := env.store.Reservations.ListBySeats(ctx, show, []uint64{seats["A2"]})
	if len(holds) != 1 || holds[0].UserID != bob {
		t.Fatalf("holds = %+v, want one held by bob", holds)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)

	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"], seats["A3"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}
	env.clock.Advance(10 * time.Minute)

	if n, _ := env.sweeper.Sweep(ctx); n != 2 {
		t.Fatalf("first sweep released %d, want 2", n)
	}
	if n, _ := env.sweeper.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep released %d, want 0", n)
	}
	env.assertSeatState(t, show)
}

func TestSweepKeepsBookedSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice@example.com"), env.user(t, "bob@example.com")
	show, seats := env.showtime(t)

	if _, err := env.finalizer.Finalize(ctx, FinalizeInput{
		UserID: alice, ShowtimeID: show, SeatIDs: []uint64{seats["B2"]}, PaymentRef: "PAY-1",
	}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	env.nextEvent(t)

	// a stray lapsed hold on a booked seat must not free it
	if _, err := env.db.Exec(
		`INSERT INTO reservations (user_id, seat_id, showtime_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		bob, seats["B2"], show, "2026-03-01 17:00:00.000", "2026-03-01 16:55:00.000",
	); err != nil {
		t.Fatalf("insert stray hold: %v", err)
	}
	if n, err := env.sweeper.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("Sweep = %d, %v; want 1", n, err)
	}
	if !env.seat(t, show, seats["B2"]).IsBooked {
		t.Fatal("booked seat was freed by the sweep")
	}
	env.assertSeatState(t, show)
}
