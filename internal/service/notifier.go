package service

import (
	"context"

	"github.com/iliyamo/bookmyseat/internal/queue"
)

// Notifier delivers booking confirmations.  Delivery is best effort; the
// finalizer logs failures and never rolls back a booking because of them.
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
	return nil
}
