package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// SeatRepo provides methods to work with the seats of a showtime.  The
// is_booked writers are the conditional updates below; callers are the
// reservation ledger and the booking finalizer.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// CreateBulkTx inserts one free seat per label in a single statement.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	query := `INSERT INTO seats (showtime_id, label, is_booked) VALUES `
	args := make([]any, 0, len(labels)*2)
	for i, label := range labels {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, 0)"
		args = append(args, showtimeID, label)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByShowtime retrieves the seat map of a showtime ordered by id, which
// follows the row-major order the seats were generated in.
func (r *SeatRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	const q = `SELECT id, showtime_id, label, is_booked FROM seats WHERE showtime_id = ? ORDER BY id`
	return scanSeats(r.db.QueryContext(ctx, q, showtimeID))
}

// GetByIDsTx returns the seats among ids that belong to showtimeID.  Ids of
// other showtimes or unknown ids are silently absent from the result.
func (r *SeatRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	in, args := inClause(ids)
	q := `SELECT id, showtime_id, label, is_booked FROM seats WHERE showtime_id = ? AND id IN (` + in + `) ORDER BY id`
	return scanSeats(tx.QueryContext(ctx, q, append([]any{showtimeID}, args...)...))
}

// GetByIDs is GetByIDsTx outside a transaction.
func (r *SeatRepo) GetByIDs(ctx context.Context, showtimeID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	in, args := inClause(ids)
	q := `SELECT id, showtime_id, label, is_booked FROM seats WHERE showtime_id = ? AND id IN (` + in + `) ORDER BY id`
	return scanSeats(r.db.QueryContext(ctx, q, append([]any{showtimeID}, args...)...))
}

func scanSeats(rows *sql.Rows, err error) ([]model.Seat, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ShowtimeID, &s.Label, &s.IsBooked); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// MarkBookedIfFreeTx is the seat-level compare-and-set: it flips is_booked
// from false to true and reports whether this call did the flip.  Under
// concurrency exactly one caller observes true for a free seat.
func (r *SeatRepo) MarkBookedIfFreeTx(ctx context.Context, tx *sql.Tx, seatID, showtimeID uint64) (bool, error) {
	const q = `UPDATE seats SET is_booked = 1 WHERE id = ? AND showtime_id = ? AND is_booked = 0`
	res, err := tx.ExecContext(ctx, q, seatID, showtimeID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ForceBookedTx sets is_booked unconditionally; used when a booking row is
// written.
func (r *SeatRepo) ForceBookedTx(ctx context.Context, tx *sql.Tx, seatID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE seats SET is_booked = 1 WHERE id = ?`, seatID)
	return err
}

// FreeIfUnbookedTx clears is_booked unless a booking exists for the seat.
func (r *SeatRepo) FreeIfUnbookedTx(ctx context.Context, tx *sql.Tx, seatID uint64) error {
	const q = `UPDATE seats SET is_booked = 0
	           WHERE id = ? AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.seat_id = ?)`
	_, err := tx.ExecContext(ctx, q, seatID, seatID)
	return err
}
