package models

import (
	"strings"
	"time"
)

// Movie is a persisted watchlist entry. Only Watched changes after creation.
type Movie struct {
	ID          string
	Title       string
	ExternalID  string
	ImageURL    string
	Description string
	Watched     bool
	OwnerID     string
	CreatedAt   time.Time
}

// MovieOut is the wire shape of a Movie.
type MovieOut struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IMDBID      string `json:"imdb_id"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Watched     bool   `json:"watched"`
	UserID      string `json:"user_id"`
}

func (m Movie) Out() MovieOut {
	return MovieOut{
		ID:          m.ID,
		Title:       m.Title,
		IMDBID:      m.ExternalID,
		ImageURL:    m.ImageURL,
		Description: m.Description,
		Watched:     m.Watched,
		UserID:      m.OwnerID,
	}
}

func MoviesOut(movies []Movie) []MovieOut {
	out := make([]MovieOut, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Out())
	}
	return out
}

type AddMovieRequest struct {
	Title string `json:"title"`
}

func (r *AddMovieRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return invalid("title is required")
	}
	if len(r.Title) > 500 {
		return invalid("title too long (max 500)")
	}
	return nil
}

// MetadataResult is what the metadata provider resolves a title to.
type MetadataResult struct {
	Title       string `json:"title"`
	ExternalID  string `json:"external_id"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}
