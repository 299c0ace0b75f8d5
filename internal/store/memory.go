package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// MemoryGateway is an in-memory Gateway for tests and local development. It
// enforces the same uniqueness rules as the Postgres implementation.
type MemoryGateway struct {
	mu             sync.Mutex
	movies         map[int64]Movie
	genresByName   map[string]Genre
	peopleByExtID  map[int64]Person
	insertionOrder []int64
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		movies:        make(map[int64]Movie),
		genresByName:  make(map[string]Genre),
		peopleByExtID: make(map[int64]Person),
	}
}

func (s *MemoryGateway) CreateMovie(_ context.Context, m Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[m.ExternalID]; ok {
		return &DuplicateEntityError{Entity: "movie", Key: strconv.FormatInt(m.ExternalID, 10)}
	}
	s.movies[m.ExternalID] = m
	s.insertionOrder = append(s.insertionOrder, m.ExternalID)
	return nil
}

func (s *MemoryGateway) FindGenreByName(_ context.Context, name string) (Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.genresByName[name]
	if !ok {
		return Genre{}, ErrNotFound
	}
	return g, nil
}

func (s *MemoryGateway) CreateGenre(_ context.Context, name string) (Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.genresByName[name]; ok {
		return g, nil
	}
	g := Genre{ID: uuid.NewString(), Name: name}
	s.genresByName[name] = g
	return g, nil
}

func (s *MemoryGateway) FindPersonByExternalID(_ context.Context, externalID int64) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peopleByExtID[externalID]
	if !ok {
		return Person{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryGateway) CreatePerson(_ context.Context, p Person) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.peopleByExtID[p.ExternalID]; ok {
		return existing, nil
	}
	p.ID = uuid.NewString()
	s.peopleByExtID[p.ExternalID] = p
	return p, nil
}

func (s *MemoryGateway) MovieByExternalID(_ context.Context, externalID int64) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[externalID]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryGateway) MoviesByTitle(_ context.Context, title string) ([]Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Movie
	for _, id := range s.insertionOrder {
		if m := s.movies[id]; m.Title == title {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryGateway) ListMoviesByTitle(ctx context.Context) ([]Movie, error) {
	out := s.allMovies()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

// ListMoviesByReleaseDate returns newest releases first; movies without a
// release date sort last.
func (s *MemoryGateway) ListMoviesByReleaseDate(ctx context.Context) ([]Movie, error) {
	out := s.allMovies()
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].ReleaseDate, out[j].ReleaseDate
		if di.IsZero() != dj.IsZero() {
			return !di.IsZero()
		}
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

func (s *MemoryGateway) TopRatedMovies(ctx context.Context, limit int) ([]Movie, error) {
	out := s.allMovies()
	sort.Slice(out, func(i, j int) bool {
		if out[i].VoteAverage != out[j].VoteAverage {
			return out[i].VoteAverage > out[j].VoteAverage
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return clip(out, limit), nil
}

func (s *MemoryGateway) LowestRatedMovies(ctx context.Context, limit int) ([]Movie, error) {
	out := s.allMovies()
	sort.Slice(out, func(i, j int) bool {
		if out[i].VoteAverage != out[j].VoteAverage {
			return out[i].VoteAverage < out[j].VoteAverage
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return clip(out, limit), nil
}

func (s *MemoryGateway) AverageRating(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.movies) == 0 {
		return 0, nil
	}
	var sum float64
	for _, m := range s.movies {
		sum += m.VoteAverage
	}
	return sum / float64(len(s.movies)), nil
}

func (s *MemoryGateway) allMovies() []Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Movie, 0, len(s.movies))
	for _, id := range s.insertionOrder {
		out = append(out, s.movies[id])
	}
	return out
}

func clip(movies []Movie, limit int) []Movie {
	if limit > 0 && len(movies) > limit {
		return movies[:limit]
	}
	return movies
}
