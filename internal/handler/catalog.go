package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/service"
)

// CatalogHandler serves the public movie, showtime and seat map reads.
type CatalogHandler struct {
	Catalog *service.Catalog
	Log     *logger.Logger
}

func NewCatalogHandler(cat *service.Catalog, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{Catalog: cat, Log: log}
}

type movieDTO struct {
	ID               uint64  `json:"id"`
	Name             string  `json:"name"`
	ImageURL         string  `json:"image_url"`
	Rating           float64 `json:"rating"`
	Cast             string  `json:"cast"`
	Description      string  `json:"description"`
	Genre            string  `json:"genre"`
	Language         string  `json:"language"`
	TrailerURL       string  `json:"trailer_url"`
	EmbedURL         string  `json:"embed_url,omitempty"`
	TicketPriceCents int64   `json:"ticket_price_cents"`
}

type showtimeDTO struct {
	ID         uint64    `json:"id"`
	MovieID    uint64    `json:"movie_id"`
	Theater    string    `json:"theater"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents int64     `json:"price_cents"`
}

type seatDTO struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	IsBooked bool   `json:"is_booked"`
}

func toMovieDTO(m model.Movie) movieDTO {
	return movieDTO{
		ID: m.ID, Name: m.Name, ImageURL: m.ImageURL, Rating: m.Rating, Cast: m.Cast,
		Description: m.Description, Genre: m.Genre, Language: m.Language,
		TrailerURL: m.TrailerURL, TicketPriceCents: m.TicketPriceCents,
	}
}

func toShowtimeDTO(s model.Showtime) showtimeDTO {
	return showtimeDTO{ID: s.ID, MovieID: s.MovieID, Theater: s.TheaterName, StartsAt: s.StartsAt, PriceCents: s.PriceCents}
}

func toShowtimeDTOs(in []model.Showtime) []showtimeDTO {
	out := make([]showtimeDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toShowtimeDTO(s))
	}
	return out
}

// ListMovies handles GET /v1/movies?search=&genre=&language=.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	f := repository.MovieFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Genre:    strings.ToLower(strings.TrimSpace(c.QueryParam("genre"))),
		Language: strings.ToLower(strings.TrimSpace(c.QueryParam("language"))),
	}
	movies, err := h.Catalog.ListMovies(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	items := make([]movieDTO, 0, len(movies))
	for _, m := range movies {
		items = append(items, toMovieDTO(m))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"genres":    model.Genres,
		"languages": model.Languages,
		"filters":   echo.Map{"search": f.Search, "genre": f.Genre, "language": f.Language},
	})
}

// GetMovie handles GET /v1/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	m, showtimes, err := h.Catalog.Movie(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	dto := toMovieDTO(*m)
	dto.EmbedURL = m.EmbedURL()
	return c.JSON(http.StatusOK, echo.Map{"movie": dto, "showtimes": toShowtimeDTOs(showtimes)})
}

// ListShowtimes handles GET /v1/movies/:id/showtimes.
func (h *CatalogHandler) ListShowtimes(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	showtimes, err := h.Catalog.Showtimes(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toShowtimeDTOs(showtimes)})
}

// SeatMap handles GET /v1/showtimes/:id/seats.
func (h *CatalogHandler) SeatMap(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	st, seats, err := h.Catalog.SeatMap(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	items := make([]seatDTO, 0, len(seats))
	for _, s := range seats {
		items = append(items, seatDTO{ID: s.ID, Label: s.Label, IsBooked: s.IsBooked})
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime": toShowtimeDTO(*st), "seats": items})
}
