package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/handler"
	"github.com/iliyamo/bookmyseat/internal/middleware"
	"github.com/iliyamo/bookmyseat/internal/model"
)

// RegisterCustomer registers the booking flow under /v1.  All routes
// require a valid JWT; admins may book too.  Holds and payment callbacks
// are rate limited per user and route.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("/showtimes/:id/hold", h.Hold, limit)
	g.GET("/checkout/:token", h.GetCheckout)
	g.DELETE("/checkout/:token", h.CancelCheckout)
	g.POST("/payments/success", h.PaymentSuccess, limit)
	g.POST("/payments/failed", h.PaymentFailed, limit)
	g.GET("/my-bookings", h.MyBookings)
}
