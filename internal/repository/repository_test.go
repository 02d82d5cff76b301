package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/bookmyseat/internal/database"
	"github.com/iliyamo/bookmyseat/internal/model"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	fn(tx)
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// seed creates a movie with one showtime of the given seat labels.
func seed(t *testing.T, db *sql.DB, labels ...string) (model.Showtime, []model.Seat) {
	t.Helper()
	ctx := context.Background()
	m := model.Movie{Name: "Heat", Genre: "thriller", Language: "english"}
	if err := NewMovieRepo(db).Create(ctx, &m); err != nil {
		t.Fatalf("movie: %v", err)
	}
	st := model.Showtime{MovieID: m.ID, TheaterName: "Rex", StartsAt: time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC), PriceCents: 900}
	inTx(t, db, func(tx *sql.Tx) {
		if err := NewShowtimeRepo(db).CreateTx(ctx, tx, &st); err != nil {
			t.Fatalf("showtime: %v", err)
		}
		if err := NewSeatRepo(db).CreateBulkTx(ctx, tx, st.ID, labels); err != nil {
			t.Fatalf("seats: %v", err)
		}
	})
	seats, err := NewSeatRepo(db).ListByShowtime(ctx, st.ID)
	if err != nil {
		t.Fatalf("list seats: %v", err)
	}
	return st, seats
}

func TestMarkBookedIfFreeIsConditional(t *testing.T) {
	db := openDB(t)
	st, seats := seed(t, db, "A1")
	repo := NewSeatRepo(db)
	ctx := context.Background()

	inTx(t, db, func(tx *sql.Tx) {
		won, err := repo.MarkBookedIfFreeTx(ctx, tx, seats[0].ID, st.ID)
		if err != nil || !won {
			t.Fatalf("first CAS = %v, %v; want true", won, err)
		}
		won, err = repo.MarkBookedIfFreeTx(ctx, tx, seats[0].ID, st.ID)
		if err != nil || won {
			t.Fatalf("second CAS = %v, %v; want false", won, err)
		}
		won, err = repo.MarkBookedIfFreeTx(ctx, tx, seats[0].ID, st.ID+1)
		if err != nil || won {
			t.Fatalf("CAS on wrong showtime = %v, %v; want false", won, err)
		}
	})

	inTx(t, db, func(tx *sql.Tx) {
		if err := repo.FreeIfUnbookedTx(ctx, tx, seats[0].ID); err != nil {
			t.Fatalf("free: %v", err)
		}
	})
	got, err := repo.ListByShowtime(ctx, st.ID)
	if err != nil || got[0].IsBooked {
		t.Fatalf("seat after free = %+v, %v", got, err)
	}
}

func TestDeleteExpiredOnlyRemovesLapsedHolds(t *testing.T) {
	db := openDB(t)
	st, seats := seed(t, db, "A1")
	users := NewUserRepo(db)
	ctx := context.Background()
	uid, err := users.Create(ctx, "u@example.com", "U", "password123", model.RoleCustomer, 4)
	if err != nil {
		t.Fatalf("user: %v", err)
	}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	res := model.Reservation{UserID: uid, SeatID: seats[0].ID, ShowtimeID: st.ID, ExpiresAt: now, CreatedAt: now.Add(-5 * time.Minute)}
	repo := NewReservationRepo(db)
	inTx(t, db, func(tx *sql.Tx) {
		if err := repo.CreateTx(ctx, tx, &res); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.CreateTx(ctx, tx, &model.Reservation{UserID: uid, SeatID: seats[0].ID, ShowtimeID: st.ID, ExpiresAt: now, CreatedAt: now}); !database.IsDuplicateKey(err) {
			t.Fatalf("second hold on the same seat: err = %v, want duplicate key", err)
		}
	})

	inTx(t, db, func(tx *sql.Tx) {
		// expiry is strict: a hold expiring exactly now is still active
		expired, err := repo.ListExpiredTx(ctx, tx, now)
		if err != nil || len(expired) != 0 {
			t.Fatalf("expired at now = %v, %v", expired, err)
		}
		deleted, err := repo.DeleteExpiredTx(ctx, tx, res.ID, now)
		if err != nil || deleted {
			t.Fatalf("delete at now = %v, %v; want false", deleted, err)
		}

		later := now.Add(time.Millisecond)
		deleted, err = repo.DeleteExpiredTx(ctx, tx, res.ID, later)
		if err != nil || !deleted {
			t.Fatalf("delete after expiry = %v, %v; want true", deleted, err)
		}
		deleted, err = repo.DeleteExpiredTx(ctx, tx, res.ID, later)
		if err != nil || deleted {
			t.Fatalf("repeated delete = %v, %v; want false", deleted, err)
		}
	})
}

func TestBookingsByPaymentRef(t *testing.T) {
	db := openDB(t)
	st, seats := seed(t, db, "A1", "A2")
	ctx := context.Background()
	uid, err := NewUserRepo(db).Create(ctx, "u@example.com", "U", "password123", model.RoleCustomer, 4)
	if err != nil {
		t.Fatalf("user: %v", err)
	}

	repo := NewBookingRepo(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	inTx(t, db, func(tx *sql.Tx) {
		for i, s := range seats {
			b := model.Booking{
				UserID: uid, SeatID: s.ID, MovieID: st.MovieID, ShowtimeID: st.ID,
				AmountCents: st.PriceCents, PaymentStatus: model.PaymentCompleted,
				PaymentRef: []string{"ref-1", "ref-2"}[i], BookedAt: now,
			}
			if err := repo.CreateTx(ctx, tx, &b); err != nil {
				t.Fatalf("booking: %v", err)
			}
		}
		if _, err := repo.GetBySeatTx(ctx, tx, 9999); !errors.Is(err, ErrNotFound) {
			t.Fatalf("unknown seat: err = %v, want ErrNotFound", err)
		}
	})

	got, err := repo.ListByPaymentRef(ctx, uid, "ref-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].SeatLabel != "A1" || got[0].MovieName != "Heat" || !got[0].StartsAt.Equal(st.StartsAt) {
		t.Fatalf("by ref = %+v", got)
	}
	all, err := repo.ListByUser(ctx, uid)
	if err != nil || len(all) != 2 {
		t.Fatalf("by user = %d, %v", len(all), err)
	}
}
