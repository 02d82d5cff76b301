package model

// Seat is a seat of one showtime.  IsBooked is true while a hold is active
// or once a booking exists; only the reservation ledger and the booking
// finalizer write it.
type Seat struct {
	ID         uint64 // seats.id
	ShowtimeID uint64 // seats.showtime_id
	Label      string // seats.label, e.g. "A1"
	IsBooked   bool   // seats.is_booked
}
