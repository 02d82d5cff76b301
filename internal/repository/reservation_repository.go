package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// ReservationRepo provides access to the reservations table, the ledger of
// time-boxed seat holds.  All timestamps are UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const selectReservation = `SELECT id, user_id, seat_id, showtime_id, expires_at, created_at FROM reservations`

// CreateTx inserts res within tx and populates its ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, seat_id, showtime_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.UserID, res.SeatID, res.ShowtimeID, timeArg(res.ExpiresAt), timeArg(res.CreatedAt))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetBySeatTx returns the reservation for (seat, showtime) or ErrNotFound.
func (r *ReservationRepo) GetBySeatTx(ctx context.Context, tx *sql.Tx, seatID, showtimeID uint64) (*model.Reservation, error) {
	var res model.Reservation
	err := tx.QueryRowContext(ctx, selectReservation+` WHERE seat_id = ? AND showtime_id = ?`, seatID, showtimeID).Scan(
		&res.ID, &res.UserID, &res.SeatID, &res.ShowtimeID, scanTime(&res.ExpiresAt), scanTime(&res.CreatedAt),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListBySeats returns the reservations of the given seats of one showtime.
func (r *ReservationRepo) ListBySeats(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]model.Reservation, error) {
	if len(seatIDs) == 0 {
		return []model.Reservation{}, nil
	}
	in, args := inClause(seatIDs)
	q := selectReservation + ` WHERE showtime_id = ? AND seat_id IN (` + in + `)`
	return scanReservations(r.db.QueryContext(ctx, q, append([]any{showtimeID}, args...)...))
}

// ListExpiredTx returns every reservation whose expiry is strictly before now.
func (r *ReservationRepo) ListExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Reservation, error) {
	return scanReservations(tx.QueryContext(ctx, selectReservation+` WHERE expires_at < ? ORDER BY id`, timeArg(now)))
}

func scanReservations(rows *sql.Rows, err error) ([]model.Reservation, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID, &res.UserID, &res.SeatID, &res.ShowtimeID, scanTime(&res.ExpiresAt), scanTime(&res.CreatedAt),
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// DeleteExpiredTx deletes the reservation only if it is still expired at now
// and reports whether this call removed it.  Concurrent sweeps therefore
// agree on a single owner of the follow-up seat release.
func (r *ReservationRepo) DeleteExpiredTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	return affectedOne(tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ? AND expires_at < ?`, id, timeArg(now)))
}

// DeleteBySeatTx removes the reservation of (seat, showtime) whoever holds it.
func (r *ReservationRepo) DeleteBySeatTx(ctx context.Context, tx *sql.Tx, seatID, showtimeID uint64) (bool, error) {
	return affectedOne(tx.ExecContext(ctx, `DELETE FROM reservations WHERE seat_id = ? AND showtime_id = ?`, seatID, showtimeID))
}

// DeleteBySeatAndUserTx removes the reservation of (seat, showtime) only if
// userID holds it.
func (r *ReservationRepo) DeleteBySeatAndUserTx(ctx context.Context, tx *sql.Tx, seatID, showtimeID, userID uint64) (bool, error) {
	const q = `DELETE FROM reservations WHERE seat_id = ? AND showtime_id = ? AND user_id = ?`
	return affectedOne(tx.ExecContext(ctx, q, seatID, showtimeID, userID))
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
