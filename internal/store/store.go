package store

import (
	"context"
	"time"
)

// Movie is a fully resolved movie graph ready for persistence. Cast, Directors
// and Genres must reference shared rows obtained from the gateway; the create
// operation attaches them by id, it never creates people or genres implicitly.
type Movie struct {
	ExternalID  int64
	Title       string
	ReleaseDate time.Time // zero value means the source reported no date
	VoteAverage float64
	Genres      []Genre
	Cast        []Person
	Directors   []Person
}

// Person is a shared, persisted person row. External id is the source-assigned
// identity key; two persons with the same external id are the same row.
type Person struct {
	ID         string
	ExternalID int64
	Name       string
	Gender     int
}

// Genre is a shared, persisted genre row keyed by canonical name.
type Genre struct {
	ID   string
	Name string
}

// Gateway defines all persistence operations for the ingestion pipeline and
// the read-side API. Each write manages its own transaction; CreateMovie in
// particular persists the whole movie graph atomically.
type Gateway interface {
	// Writes
	CreateMovie(ctx context.Context, m Movie) error
	FindGenreByName(ctx context.Context, name string) (Genre, error)
	CreateGenre(ctx context.Context, name string) (Genre, error)
	FindPersonByExternalID(ctx context.Context, externalID int64) (Person, error)
	CreatePerson(ctx context.Context, p Person) (Person, error)

	// Reads
	MovieByExternalID(ctx context.Context, externalID int64) (Movie, error)
	MoviesByTitle(ctx context.Context, title string) ([]Movie, error)
	ListMoviesByTitle(ctx context.Context) ([]Movie, error)
	ListMoviesByReleaseDate(ctx context.Context) ([]Movie, error)
	TopRatedMovies(ctx context.Context, limit int) ([]Movie, error)
	LowestRatedMovies(ctx context.Context, limit int) ([]Movie, error)
	AverageRating(ctx context.Context) (float64, error)
}
