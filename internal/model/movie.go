package model

import (
	"net/url"
	"strings"
)

// Movie is a row of the `movies` table.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – title shown in listings.
//  ImageURL         – poster location.
//  Rating           – score out of ten.
//  Cast             – free-form cast list.
//  Description      – synopsis.
//  Genre            – one of Genres.
//  Language         – one of Languages.
//  TrailerURL       – YouTube watch or short link.
//  TicketPriceCents – default price for new showtimes.
type Movie struct {
	ID               uint64  // movies.id
	Name             string  // movies.name
	ImageURL         string  // movies.image_url
	Rating           float64 // movies.rating
	Cast             string  // movies.cast_list
	Description      string  // movies.description
	Genre            string  // movies.genre
	Language         string  // movies.language
	TrailerURL       string  // movies.trailer_url
	TicketPriceCents int64   // movies.ticket_price_cents
}

// DefaultTicketPriceCents is used when a movie is created without a price.
const DefaultTicketPriceCents int64 = 15000

// Choice is a value/label pair offered to clients as a filter option.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var Genres = []Choice{
	{"action", "Action"},
	{"comedy", "Comedy"},
	{"drama", "Drama"},
	{"horror", "Horror"},
	{"romance", "Romance"},
	{"sci-fi", "Sci-Fi"},
	{"thriller", "Thriller"},
	{"animation", "Animation"},
	{"other", "Other"},
}

var Languages = []Choice{
	{"hindi", "Hindi"},
	{"english", "English"},
	{"tamil", "Tamil"},
	{"telugu", "Telugu"},
	{"malayalam", "Malayalam"},
	{"kannada", "Kannada"},
	{"bengali", "Bengali"},
	{"other", "Other"},
}

// ValidChoice reports whether v is the value of one of choices.
func ValidChoice(choices []Choice, v string) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

// EmbedURL converts a YouTube trailer link into its embed url.  Links that
// are not recognised are returned unchanged.
func (m Movie) EmbedURL() string {
	if m.TrailerURL == "" {
		return ""
	}
	u, err := url.Parse(m.TrailerURL)
	if err != nil {
		return m.TrailerURL
	}
	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}
	if id == "" {
		return m.TrailerURL
	}
	return "https://www.youtube.com/embed/" + id
}
