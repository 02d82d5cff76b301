package model

import "time"

// CheckoutSession tracks the seats a user is paying for between the hold
// and the payment callback.  It is advisory: every use is revalidated
// against the reservations table.
type CheckoutSession struct {
	Token      string    `json:"token"`
	UserID     uint64    `json:"user_id"`
	ShowtimeID uint64    `json:"showtime_id"`
	SeatIDs    []uint64  `json:"seat_ids"`
	HeldAt     time.Time `json:"held_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
