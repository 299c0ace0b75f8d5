package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxBodyBytes = 4 << 20

// DiscoverFilter is the fixed discovery query used for every page of a run.
type DiscoverFilter struct {
	OriginalLanguage string
	ReleaseDateGTE   string
	SortBy           string
}

// Client talks to the TMDb v3 API. One instance is safe for concurrent use.
type Client struct {
	BaseURL    string
	APIKey     string
	Filter     DiscoverFilter
	HTTPClient *http.Client
}

func New(apiKey, baseURL string, filter DiscoverFilter) *Client {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	if filter.OriginalLanguage == "" {
		filter.OriginalLanguage = "da"
	}
	if filter.ReleaseDateGTE == "" {
		filter.ReleaseDateGTE = "2019-01-01"
	}
	if filter.SortBy == "" {
		filter.SortBy = "primary_release_date.desc"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Filter:     filter,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// MovieSummary is one entry of a discovery page.
type MovieSummary struct {
	ID            int64   `json:"id"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	GenreIDs      []int   `json:"genre_ids"`
}

// DiscoverPage is one page of discovery results.
type DiscoverPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []MovieSummary `json:"results"`
}

// CastMember is one cast credit, in source order.
type CastMember struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Gender int    `json:"gender"`
}

// CrewMember is one crew credit with its job title.
type CrewMember struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Gender int    `json:"gender"`
	Job    string `json:"job"`
}

// Credits holds the raw cast and crew lists of a movie. Filtering crew down to
// directors is the caller's concern.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type movieDetailsResponse struct {
	ID      int64   `json:"id"`
	Credits Credits `json:"credits"`
}

// DiscoverPage fetches one 1-based discovery page.
func (c *Client) DiscoverPage(ctx context.Context, page int) (*DiscoverPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("tmdb: page must be >= 1, got %d", page)
	}
	url := fmt.Sprintf(
		"%s/discover/movie?api_key=%s&with_original_language=%s&primary_release_date.gte=%s&sort_by=%s&page=%d",
		c.BaseURL, c.APIKey, c.Filter.OriginalLanguage, c.Filter.ReleaseDateGTE, c.Filter.SortBy, page)

	var out DiscoverPage
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	if out.Results == nil && out.TotalPages == 0 {
		return nil, &DecodeError{URL: url, Err: errors.New("response missing results")}
	}
	return &out, nil
}

// MovieCredits fetches cast and crew via the movie details sub-resource.
func (c *Client) MovieCredits(ctx context.Context, movieID int64) (*Credits, error) {
	url := fmt.Sprintf("%s/movie/%d?api_key=%s&language=en-US&append_to_response=credits",
		c.BaseURL, movieID, c.APIKey)

	var out movieDetailsResponse
	if err := c.get(ctx, url, &out); err != nil {
		return nil, err
	}
	return &out.Credits, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "movie-ingest/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: url, Status: resp.StatusCode}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}
