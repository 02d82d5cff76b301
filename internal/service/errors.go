package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/bookmyseat/internal/repository"
)

var (
	// ErrValidation marks bad input; the wrapped message says what was wrong.
	ErrValidation = errors.New("validation failed")
	// ErrExpiredSession means the checkout can no longer be paid for and the
	// customer has to pick seats again.
	ErrExpiredSession = errors.New("checkout session expired")
	// ErrStoreUnavailable wraps driver and connection failures.  The
	// transaction that hit it wrote nothing.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned for unknown movies and showtimes.
	ErrNotFound = repository.ErrNotFound
)

// ConflictError lists seats that are already booked by someone else.
type ConflictError struct {
	Labels []string
}

func (e *ConflictError) Error() string {
	return "seats already booked: " + strings.Join(e.Labels, ", ")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr passes domain errors through and wraps everything else in
// ErrStoreUnavailable.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConflictError
	if errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrExpiredSession) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.As(err, &ce) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
