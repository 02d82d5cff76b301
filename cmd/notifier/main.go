// Command notifier consumes booking confirmations from RabbitMQ and emails
// them to the customer.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/mailer"
	"github.com/iliyamo/bookmyseat/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("production", "error").Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := mailer.New(cfg.SMTP)
	consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, m.SendBookingConfirmation, log)

	log.Info("notifier started", "queue", cfg.RabbitMQ.Queue, "smtp", cfg.SMTP.Host)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
}
