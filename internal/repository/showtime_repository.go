package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// ShowtimeRepo provides access to the showtimes table.
type ShowtimeRepo struct {
	db *sql.DB
}

func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const selectShowtime = `SELECT id, movie_id, theater_name, starts_at, price_cents FROM showtimes`

// CreateTx inserts s within tx and sets its ID.  Seats are created
// separately by SeatRepo.CreateBulkTx in the same transaction.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, theater_name, starts_at, price_cents) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.TheaterName, timeArg(s.StartsAt), s.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns the showtime or ErrNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return getShowtime(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *ShowtimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return getShowtime(ctx, tx, id)
}

func getShowtime(ctx context.Context, q queryer, id uint64) (*model.Showtime, error) {
	var s model.Showtime
	err := q.QueryRowContext(ctx, selectShowtime+" WHERE id = ?", id).Scan(
		&s.ID, &s.MovieID, &s.TheaterName, scanTime(&s.StartsAt), &s.PriceCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByMovie returns the showtimes of a movie in start order.
func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	rows, err := r.db.QueryContext(ctx, selectShowtime+" WHERE movie_id = ? ORDER BY starts_at, id", movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Showtime{}
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(&s.ID, &s.MovieID, &s.TheaterName, scanTime(&s.StartsAt), &s.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
