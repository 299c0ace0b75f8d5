package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-ingest/internal/store"
)

func seedGateway(t *testing.T) *store.MemoryGateway {
	t.Helper()
	g := store.NewMemoryGateway()
	ctx := context.Background()

	drama, err := g.CreateGenre(ctx, "DRAMA")
	if err != nil {
		t.Fatalf("create genre: %v", err)
	}
	director, err := g.CreatePerson(ctx, store.Person{ExternalID: 7, Name: "Thomas Vinterberg", Gender: 2})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	actor, err := g.CreatePerson(ctx, store.Person{ExternalID: 10, Name: "Mads Mikkelsen", Gender: 2})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	movies := []store.Movie{
		{
			ExternalID:  580175,
			Title:       "Druk",
			ReleaseDate: time.Date(2020, 9, 24, 0, 0, 0, 0, time.UTC),
			VoteAverage: 7.7,
			Genres:      []store.Genre{drama},
			Cast:        []store.Person{actor},
			Directors:   []store.Person{director},
		},
		{
			ExternalID:  400579,
			Title:       "Arctic",
			ReleaseDate: time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC),
			VoteAverage: 6.8,
			Genres:      []store.Genre{drama},
			Cast:        []store.Person{actor},
		},
		{
			ExternalID:  660461,
			Title:       "Retfærdighedens ryttere",
			ReleaseDate: time.Date(2020, 11, 19, 0, 0, 0, 0, time.UTC),
			VoteAverage: 7.5,
			Genres:      []store.Genre{drama},
			Cast:        []store.Person{actor},
		},
	}
	for _, m := range movies {
		if err := g.CreateMovie(ctx, m); err != nil {
			t.Fatalf("create movie %q: %v", m.Title, err)
		}
	}
	return g
}

func testRouter(g store.Gateway) chi.Router {
	r := chi.NewRouter()
	Register(r, g)
	return r
}

func doGet(t *testing.T, r chi.Router, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeMovies(t *testing.T, rr *httptest.ResponseRecorder) []movieResponse {
	t.Helper()
	var out []movieResponse
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestListMovies_SortsByTitle(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	movies := decodeMovies(t, rr)
	if len(movies) != 3 {
		t.Fatalf("expected 3 movies, got %d", len(movies))
	}
	if movies[0].Title != "Arctic" || movies[1].Title != "Druk" {
		t.Fatalf("unexpected title order: %q, %q", movies[0].Title, movies[1].Title)
	}
}

func TestListMovies_SortsByReleaseDate(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies?sort=release_date")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	movies := decodeMovies(t, rr)
	if movies[0].Title != "Retfærdighedens ryttere" {
		t.Fatalf("expected newest release first, got %q", movies[0].Title)
	}
}

func TestListMovies_RejectsUnknownSort(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies?sort=rating")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetMovie(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/580175")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var m movieResponse
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Title != "Druk" {
		t.Fatalf("expected Druk, got %q", m.Title)
	}
	if m.ReleaseDate != "2020-09-24" {
		t.Fatalf("unexpected release date %q", m.ReleaseDate)
	}
	if len(m.Directors) != 1 || m.Directors[0].Name != "Thomas Vinterberg" {
		t.Fatalf("unexpected directors: %+v", m.Directors)
	}
	if len(m.Cast) != 1 || m.Cast[0].Name != "Mads Mikkelsen" {
		t.Fatalf("unexpected cast: %+v", m.Cast)
	}
	if len(m.Genres) != 1 || m.Genres[0] != "DRAMA" {
		t.Fatalf("unexpected genres: %+v", m.Genres)
	}
}

func TestGetMovie_NotFound(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/999")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetMovie_InvalidID(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/not-a-number")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSearchMovies(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/search?title=Druk")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	movies := decodeMovies(t, rr)
	if len(movies) != 1 || movies[0].ID != 580175 {
		t.Fatalf("unexpected search result: %+v", movies)
	}
}

func TestSearchMovies_RequiresTitle(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/search")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTopRated_RespectsLimit(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/top?limit=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	movies := decodeMovies(t, rr)
	if len(movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(movies))
	}
	if movies[0].Title != "Druk" || movies[1].Title != "Retfærdighedens ryttere" {
		t.Fatalf("unexpected rating order: %q, %q", movies[0].Title, movies[1].Title)
	}
}

func TestLowestRated(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/lowest?limit=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	movies := decodeMovies(t, rr)
	if len(movies) != 1 || movies[0].Title != "Arctic" {
		t.Fatalf("expected Arctic first, got %+v", movies)
	}
}

func TestTopRated_RejectsBadLimit(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/top?limit=0")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAverageRating(t *testing.T) {
	r := testRouter(seedGateway(t))

	rr := doGet(t, r, "/v1/movies/rating/average")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp averageRatingResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := (7.7 + 6.8 + 7.5) / 3
	if diff := resp.AverageRating - want; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("expected average %.4f, got %.4f", want, resp.AverageRating)
	}
}
