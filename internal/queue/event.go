// Package queue carries booking confirmations over RabbitMQ: the API
// publishes them after a payment commits and the notifier worker consumes
// them to send the confirmation email.
package queue

// BookingQueue is the default queue name for confirmations.
const BookingQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per successful payment for the
// seats that payment newly booked.  It carries everything the email needs
// so the consumer never queries the primary database.
type BookingConfirmedEvent struct {
	UserID        uint64   `json:"user_id"`
	UserEmail     string   `json:"user_email"`
	UserName      string   `json:"user_name"`
	MovieName     string   `json:"movie_name"`
	ShowtimeID    uint64   `json:"showtime_id"`
	ShowtimeLabel string   `json:"showtime_label"`
	Theater       string   `json:"theater"`
	SeatLabels    []string `json:"seats"`
	AmountCents   int64    `json:"amount_cents"`
	PaymentRef    string   `json:"payment_ref"`
	ConfirmedAt   string   `json:"confirmed_at"`
}
