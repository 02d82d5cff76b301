package model

import "time"

// Showtime is a screening of a movie at a theater.  It owns its seats.
//
// Fields:
//  ID          – primary key identifier.
//  MovieID     – movie being screened.
//  TheaterName – venue name shown to customers.
//  StartsAt    – UTC start time.
//  PriceCents  – price of a single seat.
type Showtime struct {
	ID          uint64    // showtimes.id
	MovieID     uint64    // showtimes.movie_id
	TheaterName string    // showtimes.theater_name
	StartsAt    time.Time // showtimes.starts_at
	PriceCents  int64     // showtimes.price_cents
}

// Label is the human readable time used in emails and receipts.
func (s Showtime) Label() string {
	return s.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST")
}
