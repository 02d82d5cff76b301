package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// BookingRepo provides access to the bookings table.  Bookings are only
// ever inserted; the unique seat_id index guarantees one booking per seat.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDetail is a booking joined with what a receipt shows.
type BookingDetail struct {
	model.Booking
	SeatLabel   string
	MovieName   string
	TheaterName string
	StartsAt    time.Time
}

const selectBooking = `SELECT id, user_id, seat_id, movie_id, showtime_id, amount_cents, payment_status, payment_ref, booked_at FROM bookings`

// GetBySeatTx returns the booking of a seat or ErrNotFound.
func (r *BookingRepo) GetBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Booking, error) {
	var b model.Booking
	err := tx.QueryRowContext(ctx, selectBooking+` WHERE seat_id = ?`, seatID).Scan(
		&b.ID, &b.UserID, &b.SeatID, &b.MovieID, &b.ShowtimeID, &b.AmountCents,
		&b.PaymentStatus, &b.PaymentRef, scanTime(&b.BookedAt),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateTx inserts b and populates its ID.  A second booking for the same
// seat fails with a duplicate key error (see database.IsDuplicateKey).
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, seat_id, movie_id, showtime_id, amount_cents, payment_status, payment_ref, booked_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.SeatID, b.MovieID, b.ShowtimeID, b.AmountCents, b.PaymentStatus, b.PaymentRef, timeArg(b.BookedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

const selectBookingDetail = `SELECT b.id, b.user_id, b.seat_id, b.movie_id, b.showtime_id, b.amount_cents, b.payment_status,
       b.payment_ref, b.booked_at, s.label, m.name, st.theater_name, st.starts_at
FROM bookings b
JOIN seats s ON s.id = b.seat_id
JOIN movies m ON m.id = b.movie_id
JOIN showtimes st ON st.id = b.showtime_id`

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	q := selectBookingDetail + ` WHERE b.user_id = ? ORDER BY b.booked_at DESC, b.id`
	return scanBookingDetails(r.db.QueryContext(ctx, q, userID))
}

// ListByPaymentRef returns the user's bookings made under one payment
// reference.  It answers replayed payment callbacks.
func (r *BookingRepo) ListByPaymentRef(ctx context.Context, userID uint64, paymentRef string) ([]BookingDetail, error) {
	q := selectBookingDetail + ` WHERE b.user_id = ? AND b.payment_ref = ? ORDER BY b.id`
	return scanBookingDetails(r.db.QueryContext(ctx, q, userID, paymentRef))
}

func scanBookingDetails(rows *sql.Rows, err error) ([]BookingDetail, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BookingDetail{}
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.SeatID, &d.MovieID, &d.ShowtimeID, &d.AmountCents, &d.PaymentStatus,
			&d.PaymentRef, scanTime(&d.BookedAt), &d.SeatLabel, &d.MovieName, &d.TheaterName, scanTime(&d.StartsAt),
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
