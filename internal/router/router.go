// Package router builds the echo instance and registers every API route.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/handler"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/middleware"
)

// Handlers groups the handler sets the router mounts.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Booking *handler.BookingHandler
	Admin   *handler.AdminHandler
}

// New returns an echo instance with access logging, panic recovery and all
// routes registered.  rdb may be nil, which turns off caching and rate
// limiting.
func New(cfg *config.Config, h Handlers, rdb *redis.Client, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,

		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= 500 {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	e.GET("/healthz", h.Health.Check)
	RegisterAuth(e, h.Auth, cfg.JWT.Secret)
	RegisterPublic(e, h.Catalog, middleware.NewRedisCache(cfg.Cache, rdb))
	RegisterCustomer(e, h.Booking, cfg.JWT.Secret, middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	RegisterAdmin(e, h.Admin, cfg.JWT.Secret)
	return e
}

// RegisterAuth mounts register and login under /v1/auth and the profile
// endpoint under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic mounts the unauthenticated browse endpoints.  Only the
// movie detail goes through the response cache; seat maps must always
// reflect the ledger.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", p.ListMovies)
	e.GET("/v1/movies/:id", p.GetMovie, cache)
	e.GET("/v1/movies/:id/showtimes", p.ListShowtimes)
	e.GET("/v1/showtimes/:id/seats", p.SeatMap)
}
