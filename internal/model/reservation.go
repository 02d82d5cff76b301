package model

import "time"

// Reservation is a time-boxed hold of one seat by one user.  At most one
// exists per (seat, showtime).  It is removed by finalize, release or the
// expiry sweep.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – holder.
//  SeatID     – held seat.
//  ShowtimeID – showtime of the seat.
//  ExpiresAt  – the hold lapses strictly after this instant.
//  CreatedAt  – when the hold was placed.
type Reservation struct {
	ID         uint64    // reservations.id
	UserID     uint64    // reservations.user_id
	SeatID     uint64    // reservations.seat_id
	ShowtimeID uint64    // reservations.showtime_id
	ExpiresAt  time.Time // reservations.expires_at
	CreatedAt  time.Time // reservations.created_at
}

// ActiveAt reports whether the hold is still valid at now.
func (r Reservation) ActiveAt(now time.Time) bool {
	return !r.ExpiresAt.Before(now)
}
