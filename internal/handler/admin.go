package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/service"
)

// AdminHandler creates catalog entries.  Routes require the ADMIN role.
type AdminHandler struct {
	Catalog *service.Catalog
	Log     *logger.Logger
}

func NewAdminHandler(cat *service.Catalog, log *logger.Logger) *AdminHandler {
	return &AdminHandler{Catalog: cat, Log: log}
}

type createMovieReq struct {
	Name             string  `json:"name" validate:"required,max=255"`
	ImageURL         string  `json:"image_url" validate:"omitempty,url"`
	Rating           float64 `json:"rating" validate:"gte=0,lte=10"`
	Cast             string  `json:"cast"`
	Description      string  `json:"description"`
	Genre            string  `json:"genre"`
	Language         string  `json:"language"`
	TrailerURL       string  `json:"trailer_url" validate:"omitempty,url"`
	TicketPriceCents int64   `json:"ticket_price_cents" validate:"gte=0"`
}

type createShowtimeReq struct {
	MovieID    uint64    `json:"movie_id" validate:"required"`
	Theater    string    `json:"theater" validate:"required,max=255"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	Rows       int       `json:"rows" validate:"required,min=1,max=52"`
	Cols       int       `json:"cols" validate:"required,min=1,max=52"`
	PriceCents int64     `json:"price_cents" validate:"gte=0"`
}

// CreateMovie handles POST /v1/admin/movies.
func (h *AdminHandler) CreateMovie(c echo.Context) error {
	var req createMovieReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	m := model.Movie{
		Name:             req.Name,
		ImageURL:         strings.TrimSpace(req.ImageURL),
		Rating:           req.Rating,
		Cast:             req.Cast,
		Description:      req.Description,
		Genre:            strings.ToLower(strings.TrimSpace(req.Genre)),
		Language:         strings.ToLower(strings.TrimSpace(req.Language)),
		TrailerURL:       strings.TrimSpace(req.TrailerURL),
		TicketPriceCents: req.TicketPriceCents,
	}
	if err := h.Catalog.CreateMovie(c.Request().Context(), &m); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toMovieDTO(m))
}

// CreateShowtime handles POST /v1/admin/showtimes and generates the seat
// grid A1.. for it.
func (h *AdminHandler) CreateShowtime(c echo.Context) error {
	var req createShowtimeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	st, err := h.Catalog.CreateShowtime(c.Request().Context(), service.ShowtimeInput{
		MovieID:     req.MovieID,
		TheaterName: req.Theater,
		StartsAt:    req.StartsAt,
		Rows:        req.Rows,
		Cols:        req.Cols,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"showtime": toShowtimeDTO(*st),
		"seats":    req.Rows * req.Cols,
	})
}
