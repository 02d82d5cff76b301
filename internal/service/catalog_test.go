package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

func TestIndexToRowLabel(t *testing.T) {
	tests := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", -1: ""}
	for in, want := range tests {
		if got := indexToRowLabel(in); got != want {
			t.Errorf("indexToRowLabel(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSeatLabels(t *testing.T) {
	got := SeatLabels(2, 3)
	want := []string{"A1", "A2", "A3", "B1", "B2", "B3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SeatLabels(2,3) = %v, want %v", got, want)
	}
}

func TestCreateShowtimeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := &model.Movie{Name: "Heat"}
	if err := env.catalog.CreateMovie(ctx, m); err != nil {
		t.Fatalf("CreateMovie: %v", err)
	}
	if m.TicketPriceCents != model.DefaultTicketPriceCents || m.Genre != "other" {
		t.Fatalf("defaults not applied: %+v", m)
	}

	base := ShowtimeInput{MovieID: m.ID, TheaterName: "Hall", StartsAt: testStart, Rows: 1, Cols: 1}
	tests := []struct {
		name string
		mod  func(*ShowtimeInput)
		want error
	}{
		{"no theater", func(in *ShowtimeInput) { in.TheaterName = " " }, ErrValidation},
		{"no start", func(in *ShowtimeInput) { in.StartsAt = time.Time{} }, ErrValidation},
		{"zero rows", func(in *ShowtimeInput) { in.Rows = 0 }, ErrValidation},
		{"too many cols", func(in *ShowtimeInput) { in.Cols = 100 }, ErrValidation},
		{"unknown movie", func(in *ShowtimeInput) { in.MovieID = 999 }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mod(&in)
			if _, err := env.catalog.CreateShowtime(ctx, in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	st, err := env.catalog.CreateShowtime(ctx, base)
	if err != nil {
		t.Fatalf("CreateShowtime: %v", err)
	}
	if st.PriceCents != model.DefaultTicketPriceCents {
		t.Fatalf("price = %d, want movie price", st.PriceCents)
	}
}

func TestListMoviesFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, m := range []*model.Movie{
		{Name: "Dune", Genre: "sci-fi", Language: "english"},
		{Name: "Dunkirk", Genre: "drama", Language: "english"},
		{Name: "RRR", Genre: "action", Language: "telugu"},
	} {
		if err := env.catalog.CreateMovie(ctx, m); err != nil {
			t.Fatalf("CreateMovie: %v", err)
		}
	}

	tests := []struct {
		filter repository.MovieFilter
		want   []string
	}{
		{repository.MovieFilter{}, []string{"Dune", "Dunkirk", "RRR"}},
		{repository.MovieFilter{Search: "dun"}, []string{"Dune", "Dunkirk"}},
		{repository.MovieFilter{Genre: "drama"}, []string{"Dunkirk"}},
		{repository.MovieFilter{Language: "telugu"}, []string{"RRR"}},
		{repository.MovieFilter{Search: "dun", Genre: "action"}, []string{}},
	}
	for _, tt := range tests {
		movies, err := env.catalog.ListMovies(ctx, tt.filter)
		if err != nil {
			t.Fatalf("ListMovies(%+v): %v", tt.filter, err)
		}
		names := []string{}
		for _, m := range movies {
			names = append(names, m.Name)
		}
		if !reflect.DeepEqual(names, tt.want) {
			t.Errorf("ListMovies(%+v) = %v, want %v", tt.filter, names, tt.want)
		}
	}

	if _, err := env.catalog.ListMovies(ctx, repository.MovieFilter{Genre: "western"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown genre err = %v", err)
	}
}

func TestSeatMapSweeps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	show, seats := env.showtime(t)

	if _, err := env.ledger.PlaceHold(ctx, alice, show, []uint64{seats["A1"]}); err != nil {
		t.Fatalf("PlaceHold: %v", err)
	}
	env.clock.Advance(time.Hour)

	_, list, err := env.catalog.SeatMap(ctx, show)
	if err != nil {
		t.Fatalf("SeatMap: %v", err)
	}
	for _, s := range list {
		if s.IsBooked {
			t.Errorf("seat %s still booked after lapsed hold", s.Label)
		}
	}
	if _, _, err := env.catalog.SeatMap(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown showtime err = %v", err)
	}
}
