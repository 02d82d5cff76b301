package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// MovieRepo provides access to the movies table.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// MovieFilter narrows List.  Empty fields are ignored.  Search matches the
// movie name case-insensitively.
type MovieFilter struct {
	Search   string
	Genre    string
	Language string
}

const selectMovie = `SELECT id, name, image_url, rating, cast_list, description, genre, language, trailer_url, ticket_price_cents FROM movies`

// Create inserts m and sets its ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	if m.TicketPriceCents <= 0 {
		m.TicketPriceCents = model.DefaultTicketPriceCents
	}
	const q = `INSERT INTO movies (name, image_url, rating, cast_list, description, genre, language, trailer_url, ticket_price_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		m.Name, m.ImageURL, m.Rating, m.Cast, m.Description, m.Genre, m.Language, m.TrailerURL, m.TicketPriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID returns the movie or ErrNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return getMovie(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *MovieRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Movie, error) {
	return getMovie(ctx, tx, id)
}

func getMovie(ctx context.Context, q queryer, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := q.QueryRowContext(ctx, selectMovie+" WHERE id = ?", id).Scan(
		&m.ID, &m.Name, &m.ImageURL, &m.Rating, &m.Cast, &m.Description,
		&m.Genre, &m.Language, &m.TrailerURL, &m.TicketPriceCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns movies matching f ordered by name.
func (r *MovieRepo) List(ctx context.Context, f MovieFilter) ([]model.Movie, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if f.Genre != "" {
		where = append(where, "genre = ?")
		args = append(args, f.Genre)
	}
	if f.Language != "" {
		where = append(where, "language = ?")
		args = append(args, f.Language)
	}
	q := selectMovie
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(
			&m.ID, &m.Name, &m.ImageURL, &m.Rating, &m.Cast, &m.Description,
			&m.Genre, &m.Language, &m.TrailerURL, &m.TicketPriceCents,
		); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}
