package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/movie-ingest/internal/store"
)

// genreNamesByCode is the closed enumeration of TMDb genre codes.
var genreNamesByCode = map[int]string{
	28:    "ACTION",
	12:    "ADVENTURE",
	16:    "ANIMATION",
	35:    "COMEDY",
	80:    "CRIME",
	99:    "DOCUMENTARY",
	18:    "DRAMA",
	10751: "FAMILY",
	14:    "FANTASY",
	36:    "HISTORY",
	27:    "HORROR",
	10402: "MUSIC",
	9648:  "MYSTERY",
	10749: "ROMANCE",
	878:   "SCIENCE_FICTION",
	10770: "TV_MOVIE",
	53:    "THRILLER",
	10752: "WAR",
	37:    "WESTERN",
}

// UnmappedGenreError reports a genre code outside the closed enumeration.
type UnmappedGenreError struct {
	Code int
}

func (e *UnmappedGenreError) Error() string {
	return fmt.Sprintf("no genre mapped for code %d", e.Code)
}

// NameByCode resolves a numeric genre code to its canonical name.
func NameByCode(code int) (string, error) {
	name, ok := genreNamesByCode[code]
	if !ok {
		return "", &UnmappedGenreError{Code: code}
	}
	return name, nil
}

// GenreStore is the slice of the gateway the catalog needs.
type GenreStore interface {
	FindGenreByName(ctx context.Context, name string) (store.Genre, error)
	CreateGenre(ctx context.Context, name string) (store.Genre, error)
}

// GenreCatalog resolves genre codes to shared persisted rows. Check-then-create
// is serialized behind the mutex, so a name is created at most once even under
// concurrent resolution.
type GenreCatalog struct {
	store GenreStore

	mu     sync.Mutex
	byName map[string]store.Genre
}

func NewGenreCatalog(s GenreStore) *GenreCatalog {
	return &GenreCatalog{store: s, byName: make(map[string]store.Genre)}
}

// Resolve maps a code to the shared genre row, creating the row on first use.
func (c *GenreCatalog) Resolve(ctx context.Context, code int) (store.Genre, error) {
	name, err := NameByCode(code)
	if err != nil {
		return store.Genre{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.byName[name]; ok {
		return g, nil
	}
	g, err := c.store.FindGenreByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		g, err = c.store.CreateGenre(ctx, name)
	}
	if err != nil {
		return store.Genre{}, err
	}
	c.byName[name] = g
	return g, nil
}
