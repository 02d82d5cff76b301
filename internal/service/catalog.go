package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

const maxGridSide = 52

// Catalog serves movie and showtime reads and the admin writes that create
// them.  Reads that expose seat state sweep expired holds first.
type Catalog struct {
	store   *Store
	sweeper *Sweeper
}

func NewCatalog(store *Store, sweeper *Sweeper) *Catalog {
	return &Catalog{store: store, sweeper: sweeper}
}

// ListMovies sweeps and returns the movies matching f.
func (c *Catalog) ListMovies(ctx context.Context, f repository.MovieFilter) ([]model.Movie, error) {
	if f.Genre != "" && !model.ValidChoice(model.Genres, f.Genre) {
		return nil, invalid("unknown genre %q", f.Genre)
	}
	if f.Language != "" && !model.ValidChoice(model.Languages, f.Language) {
		return nil, invalid("unknown language %q", f.Language)
	}
	if _, err := c.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	movies, err := c.store.Movies.List(ctx, f)
	return movies, storeErr(err)
}

// Movie returns a movie and its showtimes.
func (c *Catalog) Movie(ctx context.Context, id uint64) (*model.Movie, []model.Showtime, error) {
	m, err := c.store.Movies.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	showtimes, err := c.store.Showtimes.ListByMovie(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	return m, showtimes, nil
}

// Showtimes lists the theaters and times a movie plays at.
func (c *Catalog) Showtimes(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	if _, err := c.store.Movies.GetByID(ctx, movieID); err != nil {
		return nil, storeErr(err)
	}
	out, err := c.store.Showtimes.ListByMovie(ctx, movieID)
	return out, storeErr(err)
}

// SeatMap sweeps and returns the showtime with its seats.
func (c *Catalog) SeatMap(ctx context.Context, showtimeID uint64) (*model.Showtime, []model.Seat, error) {
	if _, err := c.sweeper.Sweep(ctx); err != nil {
		return nil, nil, err
	}
	st, err := c.store.Showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	seats, err := c.store.Seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	return st, seats, nil
}

// Seats returns selected seats of a showtime, for receipts.
func (c *Catalog) Seats(ctx context.Context, showtimeID uint64, ids []uint64) ([]model.Seat, error) {
	seats, err := c.store.Seats.GetByIDs(ctx, showtimeID, ids)
	return seats, storeErr(err)
}

// Showtime returns one showtime.
func (c *Catalog) Showtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	st, err := c.store.Showtimes.GetByID(ctx, id)
	return st, storeErr(err)
}

// CreateMovie validates and inserts m.
func (c *Catalog) CreateMovie(ctx context.Context, m *model.Movie) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("name is required")
	}
	if m.Genre == "" {
		m.Genre = "other"
	}
	if m.Language == "" {
		m.Language = "english"
	}
	if !model.ValidChoice(model.Genres, m.Genre) {
		return invalid("unknown genre %q", m.Genre)
	}
	if !model.ValidChoice(model.Languages, m.Language) {
		return invalid("unknown language %q", m.Language)
	}
	if m.Rating < 0 || m.Rating > 10 {
		return invalid("rating must be between 0 and 10")
	}
	return storeErr(c.store.Movies.Create(ctx, m))
}

type ShowtimeInput struct {
	MovieID     uint64
	TheaterName string
	StartsAt    time.Time
	Rows        int
	Cols        int
	PriceCents  int64 // zero uses the movie's ticket price
}

// CreateShowtime inserts a showtime and a rows x cols grid of free seats
// labelled A1, A2, ... in one transaction.
func (c *Catalog) CreateShowtime(ctx context.Context, in ShowtimeInput) (*model.Showtime, error) {
	in.TheaterName = strings.TrimSpace(in.TheaterName)
	switch {
	case in.TheaterName == "":
		return nil, invalid("theater is required")
	case in.StartsAt.IsZero():
		return nil, invalid("starts_at is required")
	case in.Rows < 1 || in.Rows > maxGridSide || in.Cols < 1 || in.Cols > maxGridSide:
		return nil, invalid("rows and cols must be between 1 and %d", maxGridSide)
	case in.PriceCents < 0:
		return nil, invalid("price_cents must not be negative")
	}

	var st model.Showtime
	err := c.store.WithTx(ctx, func(tx *sql.Tx) error {
		movie, err := c.store.Movies.GetByIDTx(ctx, tx, in.MovieID)
		if err != nil {
			return err
		}
		price := in.PriceCents
		if price == 0 {
			price = movie.TicketPriceCents
		}
		st = model.Showtime{
			MovieID:     movie.ID,
			TheaterName: in.TheaterName,
			StartsAt:    in.StartsAt.UTC(),
			PriceCents:  price,
		}
		if err := c.store.Showtimes.CreateTx(ctx, tx, &st); err != nil {
			return err
		}
		return c.store.Seats.CreateBulkTx(ctx, tx, st.ID, SeatLabels(in.Rows, in.Cols))
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SeatLabels returns row-major labels for a rows x cols grid.
func SeatLabels(rows, cols int) []string {
	labels := make([]string, 0, rows*cols)
	for r := 0; r < rows; r++ {
		row := indexToRowLabel(r)
		for col := 1; col <= cols; col++ {
			labels = append(labels, row+strconv.Itoa(col))
		}
	}
	return labels
}

// indexToRowLabel converts a zero-based index to A, B, ..., Z, AA, AB, ...
func indexToRowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []rune
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for l, r := 0, len(res)-1; l < r; l, r = l+1, r-1 {
		res[l], res[r] = res[r], res[l]
	}
	return string(res)
}
