package middleware

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

var errNoUser = errors.New("invalid user_id in context")

// UserID returns the authenticated user id placed in the context by JWTAuth.
// The claim may arrive as a string or as a JSON number.
func UserID(c echo.Context) (uint64, error) {
	switch t := c.Get(ContextUserID).(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errNoUser
}

// userKey is the rate limit identity: the user id, or "anon".
func userKey(c echo.Context) string {
	if id, err := UserID(c); err == nil && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
