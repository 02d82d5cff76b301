package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/bookmyseat/internal/logger"
)

func TestPlaceHoldSecondUserConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice@example.com"), env.user(t, "bob@example.com")
	show, seats := env.showtime(t)

	got, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]})
	if err != nil {
		t.Fatalf("PlaceHold alice: %v", err)
	}
	if !reflect.DeepEqual(got.Placed, []uint64{seats["A1"]}) || len(got.Conflicts) != 0 {
		t.Fatalf("alice result = %+v", got)
	}
	if !env.seat(t, show, seats["A1"]).IsBooked {
		t.Fatal("A1 should be booked while held")
	}

	got, err = env.ledger.PlaceHold(ctx, bob, show, []uint64{seats["A1"]})
	if err != nil {
		t.Fatalf("PlaceHold bob: %v", err)
	}
	if len(got.Placed) != 0 || !reflect.DeepEqual(got.Conflicts, []string{"A1"}) {
		t.Fatalf("bob result = %+v", got)
	}
	if n := env.count(t, `SELECT COUNT(*) FROM reservations WHERE seat_id = ?`, seats["A1"]); n != 1 {
		t.Fatalf("reservations for A1 = %d, want 1", n)
	}
	env.assertSeatState(t, show)
}

func TestPlaceHoldPartialBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice@example.com"), env.user(t, "bob@example.com")
	show, seats := env.showtime(t)

	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A2"]}); err != nil {
		t.Fatalf("PlaceHold alice: %v", err)
	}
	got, err := env.ledger.PlaceHold(ctx, bob, show, []uint64{seats["A1"], seats["A2"], seats["A3"]})
	if err != nil {
		t.Fatalf("PlaceHold bob: %v", err)
	}
	if !reflect.DeepEqual(got.Placed, []uint64{seats["A1"], seats["A3"]}) {
		t.Errorf("placed = %v", got.Placed)
	}
	if !reflect.DeepEqual(got.Conflicts, []string{"A2"}) {
		t.Errorf("conflicts = %v", got.Conflicts)
	}
	env.assertSeatState(t, show)
}

func TestPlaceHoldValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)
	other, otherSeats := env.showtime(t)

	tests := []struct {
		name  string
		show  uint64
		seats []uint64
	}{
		{"no seats", show, nil},
		{"seat of another showtime", show, []uint64{seats["A1"], otherSeats["B1"]}},
		{"unknown seat", show, []uint64{999999}},
		{"unknown showtime", 424242, []uint64{seats["A1"]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.PlaceHold(ctx, alice, tt.show, tt.seats)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}

	if env.seat(t, show, seats["A1"]).IsBooked {
		t.Error("A1 was written by a rejected request")
	}
	if env.seat(t, other, otherSeats["B1"]).IsBooked {
		t.Error("B1 of the other showtime was written")
	}
	if n := env.count(t, `SELECT COUNT(*) FROM reservations`); n != 0 {
		t.Errorf("reservations = %d, want 0", n)
	}
}

func TestPlaceHoldCollapsesDuplicates(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)

	got, err := env.ledger.PlaceHold(context.Background(), alice, show, []uint64{seats["B1"], seats["B1"]})
	if err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}
	if !reflect.DeepEqual(got.Placed, []uint64{seats["B1"]}) || len(got.Conflicts) != 0 {
		t.Fatalf("result = %+v", got)
	}
}

func TestPlaceHoldOwnHoldIsNotRenewed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)

	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]}); err != nil {
		t.Fatalf("first hold: %v", err)
	}
	env.clock.Advance(2 * time.Minute)
	got, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]})
	if err != nil {
		t.Fatalf("second hold: %v", err)
	}
	if !reflect.DeepEqual(got.Placed, []uint64{seats["A1"]}) {
		t.Fatalf("placed = %v", got.Placed)
	}

	holds, err := env.store.Reservations.ListBySeats(ctx, show, []uint64{seats["A1"]})
	if err != nil || len(holds) != 1 {
		t.Fatalf("holds = %v, %v", holds, err)
	}
	if want := testStart.Add(defaultHoldTTL); !holds[0].ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", holds[0].ExpiresAt, want)
	}
}

func TestPlaceHoldCustomTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)
	ledger := NewLedger(env.store, env.sweeper, env.clock, logger.Discard(), WithHoldTTL(90*time.Second))

	if _, err := ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}
	holds, _ := env.store.Reservations.ListBySeats(ctx, show, []uint64{seats["A1"]})
	if len(holds) != 1 || !holds[0].ExpiresAt.Equal(testStart.Add(90*time.Second)) {
		t.Fatalf("holds = %+v", holds)
	}
}

func TestPlaceHoldConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	show, seats := env.showtime(t)
	users := []uint64{env.user(t, "a@example.com"), env.user(t, "b@example.com")}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		conflct int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u uint64) {
			defer wg.Done()
			res, err := env.ledger.PlaceHold(ctx, u, show, []uint64{seats["A1"]})
			if err != nil {
				t.Errorf("PlaceHold(%d): %v", u, err)
				return
			}
			mu.Lock()
			placed += len(res.Placed)
			conflct += len(res.Conflicts)
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	if placed != 1 || conflct != 1 {
		t.Fatalf("placed=%d conflicts=%d, want 1 and 1", placed, conflct)
	}
	if n := env.count(t, `SELECT COUNT(*) FROM reservations WHERE seat_id = ?`, seats["A1"]); n != 1 {
		t.Fatalf("reservations = %d, want 1", n)
	}
}

func TestPlaceHoldStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)
	env.db.Close()

	_, err := env.ledger.PlaceHold(context.Background(), alice, show, []uint64{seats["A1"]})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}
