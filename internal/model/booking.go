package model

import "time"

// Payment states of a booking.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Booking is the permanent record of a paid seat.  Bookings are never
// deleted and there is at most one per seat.
type Booking struct {
	ID            uint64    // bookings.id
	UserID        uint64    // bookings.user_id
	SeatID        uint64    // bookings.seat_id
	MovieID       uint64    // bookings.movie_id
	ShowtimeID    uint64    // bookings.showtime_id
	AmountCents   int64     // bookings.amount_cents
	PaymentStatus string    // bookings.payment_status
	PaymentRef    string    // bookings.payment_ref
	BookedAt      time.Time // bookings.booked_at
}
