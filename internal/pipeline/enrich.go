package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/movie-ingest/internal/tmdb"
)

const crewJobDirector = "Director"

// CreditsFetcher fetches raw cast and crew for one movie.
type CreditsFetcher interface {
	MovieCredits(ctx context.Context, movieID int64) (*tmdb.Credits, error)
}

// Enricher fans credits fetches out over a bounded worker pool and joins the
// results back onto the originating movie records.
type Enricher struct {
	Credits CreditsFetcher
	Log     *zap.Logger
	Workers int
}

func NewEnricher(credits CreditsFetcher, log *zap.Logger, workers int) *Enricher {
	if workers <= 0 {
		workers = 4
	}
	return &Enricher{Credits: credits, Log: log, Workers: workers}
}

// EnrichPage dispatches one task per movie and blocks until every task has
// completed; nothing downstream sees a partially enriched page. A movie whose
// credits cannot be fetched keeps empty cast/director lists and is still
// persisted later. The only error returned is context cancellation.
func (e *Enricher) EnrichPage(ctx context.Context, movies []*Movie) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)

	for _, m := range movies {
		m := m
		g.Go(func() error {
			credits, err := e.Credits.MovieCredits(ctx, m.ExternalID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.Log.Warn("credits fetch failed, persisting without cast",
					zap.Int64("movie_id", m.ExternalID),
					zap.String("title", m.Title),
					zap.Error(err))
				return nil
			}
			// Source response order is preserved in both lists.
			m.Cast = credits.Cast
			for _, crew := range credits.Crew {
				if crew.Job == crewJobDirector {
					m.Directors = append(m.Directors, crew)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
