// Package handler holds the HTTP handlers of the JSON API.  Handlers bind
// and validate the request, call one service, and map service errors to
// status codes with an {"error": ...} body.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/middleware"
	"github.com/iliyamo/bookmyseat/internal/service"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

func NewValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// bind decodes the body into dst and validates it.  On failure it has
// already written a 400 response and returns false.
func bind(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		if fe.Param() != "" {
			return "invalid " + fe.Field() + ": " + fe.Tag() + "=" + fe.Param()
		}
		return "invalid " + fe.Field() + ": " + fe.Tag()
	}
	return err.Error()
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func currentUser(c echo.Context) (uint64, bool) {
	id, err := middleware.UserID(c)
	return id, err == nil && id > 0
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// fail maps a service error to its status code.  Store failures are
// logged; everything else is the client's problem.
func fail(c echo.Context, log *logger.Logger, err error) error {
	if uid, ok := currentUser(c); ok {
		log = log.WithUserID(uid)
	}
	var ce *service.ConflictError
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats already booked", "conflicts": ce.Labels})
	case errors.Is(err, service.ErrExpiredSession):
		return c.JSON(http.StatusGone, echo.Map{"error": "checkout expired, please select seats again"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrStoreUnavailable):
		log.ErrorWithContext(c.Request().Context(), "store unavailable", err, map[string]any{"path": c.Path()})
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable"})
	default:
		log.ErrorWithContext(c.Request().Context(), "request failed", err, map[string]any{"path": c.Path()})
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
