// Package session stores checkout sessions.  Redis is used when it is
// reachable; otherwise sessions live in process memory.
package session

import "errors"

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("checkout session not found")

const keyPrefix = "checkout:"
