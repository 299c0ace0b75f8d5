package pipeline

import (
	"time"

	"github.com/example/movie-ingest/internal/tmdb"
)

// Movie is the transient in-flight record: born from a discovery page, mutated
// in place by enrichment, consumed exactly once by persistence.
type Movie struct {
	ExternalID  int64
	Title       string
	ReleaseDate time.Time
	VoteAverage float64
	GenreCodes  []int
	Cast        []tmdb.CastMember
	Directors   []tmdb.CrewMember
}

func fromSummary(s tmdb.MovieSummary) *Movie {
	m := &Movie{
		ExternalID:  s.ID,
		Title:       s.OriginalTitle,
		VoteAverage: s.VoteAverage,
		GenreCodes:  s.GenreIDs,
	}
	if s.ReleaseDate != "" {
		if t, err := time.Parse("2006-01-02", s.ReleaseDate); err == nil {
			m.ReleaseDate = t
		}
	}
	return m
}

func fromSummaries(summaries []tmdb.MovieSummary) []*Movie {
	out := make([]*Movie, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, fromSummary(s))
	}
	return out
}
