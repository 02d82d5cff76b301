// Package repository holds the database/sql data access for users, movies,
// showtimes, seats, reservations and bookings.  Methods suffixed with Tx
// run inside a transaction owned by the caller, who must commit or roll back.
package repository

import "errors"

// ErrNotFound is returned when a looked up row does not exist.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
var ErrEmailExists = errors.New("email already exists")
