package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/bookmyseat/internal/logger"
)

// Handler processes one confirmation.
type Handler func(ctx context.Context, ev BookingConfirmedEvent) error

// Consumer reads confirmations and hands them to a Handler.  Messages the
// handler rejects are dropped (nack without requeue) so one bad message
// cannot wedge the queue.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   Handler
	log      *logger.Logger
}

func NewConsumer(url, queue string, handle Handler, log *logger.Logger) *Consumer {
	if queue == "" {
		queue = BookingQueue
	}
	return &Consumer{url: url, queue: queue, prefetch: 50, handle: handle, log: log}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WarnContext(ctx, "booking consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WarnContext(ctx, "booking consumer: loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.WarnContext(ctx, "booking consumer: set QoS failed", "error", err)
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Process(ctx, d.Body); err != nil {
				c.log.ErrorWithContext(ctx, "booking consumer: message rejected", err, nil)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Process decodes one message body and runs the handler on it.
func (c *Consumer) Process(ctx context.Context, body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.handle(ctx, ev); err != nil {
		return err
	}
	c.log.InfoContext(ctx, "booking confirmation delivered",
		"user_id", ev.UserID, "payment_ref", ev.PaymentRef, "seats", ev.SeatLabels)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
