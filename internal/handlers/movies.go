// Package handlers exposes the persisted movie catalog over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-ingest/internal/platform/api"
	"github.com/example/movie-ingest/internal/store"
)

const defaultRatingLimit = 10

type movieResponse struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	ReleaseDate string           `json:"release_date,omitempty"`
	VoteAverage float64          `json:"vote_average"`
	Genres      []string         `json:"genres"`
	Cast        []personResponse `json:"cast"`
	Directors   []personResponse `json:"directors"`
}

type personResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Gender int    `json:"gender"`
}

type averageRatingResponse struct {
	AverageRating float64 `json:"average_rating"`
}

func toMovieResponse(m store.Movie) movieResponse {
	resp := movieResponse{
		ID:          m.ExternalID,
		Title:       m.Title,
		VoteAverage: m.VoteAverage,
		Genres:      make([]string, 0, len(m.Genres)),
		Cast:        make([]personResponse, 0, len(m.Cast)),
		Directors:   make([]personResponse, 0, len(m.Directors)),
	}
	if !m.ReleaseDate.IsZero() {
		resp.ReleaseDate = m.ReleaseDate.Format("2006-01-02")
	}
	for _, g := range m.Genres {
		resp.Genres = append(resp.Genres, g.Name)
	}
	for _, p := range m.Cast {
		resp.Cast = append(resp.Cast, personResponse{ID: p.ExternalID, Name: p.Name, Gender: p.Gender})
	}
	for _, p := range m.Directors {
		resp.Directors = append(resp.Directors, personResponse{ID: p.ExternalID, Name: p.Name, Gender: p.Gender})
	}
	return resp
}

func toMovieResponses(movies []store.Movie) []movieResponse {
	out := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		out = append(out, toMovieResponse(m))
	}
	return out
}

// ListMovies returns all movies, sorted by title or release date.
// ?sort=release_date switches to newest-first release date order;
// anything else (including absent) sorts by title.
func ListMovies(s store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			movies []store.Movie
			err    error
		)
		switch sort := strings.TrimSpace(r.URL.Query().Get("sort")); sort {
		case "", "title":
			movies, err = s.ListMoviesByTitle(r.Context())
		case "release_date":
			movies, err = s.ListMoviesByReleaseDate(r.Context())
		default:
			api.BadRequest(w, "INVALID_SORT", "sort must be title or release_date", "", nil)
			return
		}
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, toMovieResponses(movies))
	}
}

// SearchMovies returns movies matching an exact title.
func SearchMovies(s store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimSpace(r.URL.Query().Get("title"))
		if title == "" {
			api.BadRequest(w, "MISSING_TITLE", "title is required", "", nil)
			return
		}
		movies, err := s.MoviesByTitle(r.Context(), title)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, toMovieResponses(movies))
	}
}

// GetMovie returns a single movie by its external id.
func GetMovie(s store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			api.BadRequest(w, "INVALID_ID", "id must be an integer", "", nil)
			return
		}
		movie, err := s.MovieByExternalID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, "MOVIE_NOT_FOUND", "movie not found", "")
			return
		}
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, toMovieResponse(movie))
	}
}

// TopRated returns the highest-rated movies, best first.
func TopRated(s store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r)
		if !ok {
			return
		}
		movies, err := s.TopRatedMovies(r.Context(), limit)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, toMovieResponses(movies))
	}
}

// LowestRated returns the lowest-rated movies, worst first.
func LowestRated(s store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r)
		if !ok {
			return
		}
		movies, err := s.LowestRatedMovies(r.Context(), limit)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, toMovieResponses(movies))
	}
}

// AverageRating returns the mean vote average across all movies.
func AverageRating(s store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		avg, err := s.AverageRating(r.Context())
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, averageRatingResponse{AverageRating: avg})
	}
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultRatingLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		api.BadRequest(w, "INVALID_LIMIT", "limit must be between 1 and 100", "", nil)
		return 0, false
	}
	return limit, true
}

// Register mounts the movie routes on r.
func Register(r chi.Router, s store.Gateway) {
	r.Route("/v1/movies", func(r chi.Router) {
		r.Get("/", ListMovies(s))
		r.Get("/search", SearchMovies(s))
		r.Get("/top", TopRated(s))
		r.Get("/lowest", LowestRated(s))
		r.Get("/rating/average", AverageRating(s))
		r.Get("/{id}", GetMovie(s))
	})
}
