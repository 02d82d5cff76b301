// Package mailer renders and sends booking confirmation emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/queue"
)

//go:embed templates/*
var templateFS embed.FS

var funcs = map[string]any{
	"join":  strings.Join,
	"money": formatCents,
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("booking_confirmation.html").
			Funcs(htmltemplate.FuncMap(funcs)).
			ParseFS(templateFS, "templates/booking_confirmation.html"))
	textTmpl = texttemplate.Must(texttemplate.New("booking_confirmation.txt").
			Funcs(texttemplate.FuncMap(funcs)).
			ParseFS(templateFS, "templates/booking_confirmation.txt"))
)

// ErrNoRecipient is returned for events without a user email.
var ErrNoRecipient = errors.New("booking event has no recipient")

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

// Email is a rendered confirmation.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Render builds the confirmation email for ev.
func Render(ev queue.BookingConfirmedEvent) (Email, error) {
	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, ev); err != nil {
		return Email{}, fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&text, ev); err != nil {
		return Email{}, fmt.Errorf("render text: %w", err)
	}
	return Email{
		To:      ev.UserEmail,
		Subject: "Your BookMySeat Booking Confirmation - " + ev.MovieName,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// Mailer delivers confirmations through an SMTP server.
type Mailer struct {
	from string
	send func(*gomail.Message) error
}

func New(cfg config.SMTP) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Mailer{from: cfg.From, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

// SendBookingConfirmation renders and sends the email for ev.
func (m *Mailer) SendBookingConfirmation(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	if ev.UserEmail == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := Render(ev)
	if err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/plain", e.Text)
	msg.AddAlternative("text/html", e.HTML)
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", e.To, err)
	}
	return nil
}
