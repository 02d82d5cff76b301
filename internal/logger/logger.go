// Package logger wraps log/slog with the handful of domain-level log helpers
// used by the booking core and the HTTP layer.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with booking specific helpers.
type Logger struct {
	*slog.Logger
}

// New builds a logger for the given application environment.  Development
// environments get the human readable text handler; everything else logs
// JSON.  The level comes from the level string (debug, info, warn, error).
func New(env, level string) *Logger {
	return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter is New with an explicit output, used by tests.
func NewWithWriter(w io.Writer, env, level string) *Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	var handler slog.Handler
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithUserID adds the user id to every record.
func (l *Logger) WithUserID(userID uint64) *Logger {
	return &Logger{Logger: l.Logger.With(slog.Uint64("user_id", userID))}
}

// LogSweep logs how many expired holds a sweep released.  Empty sweeps are
// logged at debug so that every request path does not produce noise.
func (l *Logger) LogSweep(ctx context.Context, released int) {
	if released == 0 {
		l.Logger.DebugContext(ctx, "Expired holds swept", slog.Int("released", 0))
		return
	}
	l.Logger.InfoContext(ctx, "Expired holds swept", slog.Int("released", released))
}

// LogHoldPlaced logs the outcome of a hold request.
func (l *Logger) LogHoldPlaced(ctx context.Context, userID, showtimeID uint64, placed []uint64, conflicts []string) {
	l.Logger.InfoContext(ctx,
		"Seat Hold",
		slog.Uint64("user_id", userID),
		slog.Uint64("showtime_id", showtimeID),
		slog.Any("placed", placed),
		slog.Any("conflicts", conflicts),
	)
}

// LogBookingFinalized logs a committed payment.
func (l *Logger) LogBookingFinalized(ctx context.Context, userID, showtimeID uint64, paymentRef string, created, replayed int) {
	l.Logger.InfoContext(ctx,
		"Booking Finalized",
		slog.Uint64("user_id", userID),
		slog.Uint64("showtime_id", showtimeID),
		slog.String("payment_ref", paymentRef),
		slog.Int("created", created),
		slog.Int("replayed", replayed),
	)
}

// LogSeatsReleased logs a release triggered by payment failure or cancel.
func (l *Logger) LogSeatsReleased(ctx context.Context, userID, showtimeID uint64, released int) {
	l.Logger.InfoContext(ctx,
		"Seats Released",
		slog.Uint64("user_id", userID),
		slog.Uint64("showtime_id", showtimeID),
		slog.Int("released", released),
	)
}

// ErrorWithContext logs err together with arbitrary fields.
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]any) {
	args := make([]any, 0, len(fields)+1)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}
