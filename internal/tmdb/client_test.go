package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New("test-key", srv.URL, DiscoverFilter{}), srv
}

func TestDiscoverPage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discover/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("with_original_language") != "da" || q.Get("page") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"page": 2,
			"total_pages": 5,
			"total_results": 90,
			"results": [
				{"id": 1, "original_title": "A", "release_date": "2020-01-02", "vote_average": 6.5, "genre_ids": [18, 35]},
				{"id": 2, "original_title": "B", "release_date": "2021-03-04", "vote_average": 7.1, "genre_ids": [18]}
			]
		}`))
	})
	defer srv.Close()

	page, err := c.DiscoverPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if page.TotalPages != 5 || len(page.Results) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Results[0].ID != 1 || page.Results[0].GenreIDs[0] != 18 {
		t.Fatalf("unexpected first result: %+v", page.Results[0])
	}
}

func TestDiscoverPage_ServerError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := c.DiscoverPage(context.Background(), 1)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", te.Status)
	}
}

func TestDiscoverPage_MalformedBody(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page": `))
	})
	defer srv.Close()

	_, err := c.DiscoverPage(context.Background(), 1)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDiscoverPage_MissingResults(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_message": "Invalid API key"}`))
	})
	defer srv.Close()

	_, err := c.DiscoverPage(context.Background(), 1)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestMovieCredits(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/580175" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Errorf("missing append_to_response in %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"id": 580175,
			"credits": {
				"cast": [
					{"id": 10, "name": "Mads Mikkelsen", "gender": 2},
					{"id": 11, "name": "Thomas Bo Larsen", "gender": 2}
				],
				"crew": [
					{"id": 7, "name": "Thomas Vinterberg", "gender": 2, "job": "Director"},
					{"id": 12, "name": "Sturla Brandth Grøvlen", "gender": 2, "job": "Director of Photography"}
				]
			}
		}`))
	})
	defer srv.Close()

	credits, err := c.MovieCredits(context.Background(), 580175)
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	if len(credits.Cast) != 2 || credits.Cast[0].Name != "Mads Mikkelsen" {
		t.Fatalf("unexpected cast: %+v", credits.Cast)
	}
	if len(credits.Crew) != 2 || credits.Crew[0].Job != "Director" {
		t.Fatalf("unexpected crew: %+v", credits.Crew)
	}
}

func TestMovieCredits_MissingCreditsKey(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 99}`))
	})
	defer srv.Close()

	credits, err := c.MovieCredits(context.Background(), 99)
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	if len(credits.Cast) != 0 || len(credits.Crew) != 0 {
		t.Fatalf("expected empty credits, got %+v", credits)
	}
}
