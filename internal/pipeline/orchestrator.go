package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/movie-ingest/internal/store"
	"github.com/example/movie-ingest/internal/tmdb"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateIdle State = iota
	StateFetchingPages
	StateEnriching
	StateResolvingReferenceData
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingPages:
		return "fetching_pages"
	case StateEnriching:
		return "enriching"
	case StateResolvingReferenceData:
		return "resolving_reference_data"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageFetcher fetches one discovery page.
type PageFetcher interface {
	DiscoverPage(ctx context.Context, page int) (*tmdb.DiscoverPage, error)
}

// SkippedMovie records why one movie did not make it into the store.
type SkippedMovie struct {
	ExternalID int64
	Title      string
	Reason     string
}

// Summary is the user-visible outcome of a run.
type Summary struct {
	PagesRequested   int
	PagesFetched     int
	PagesSkipped     int
	MoviesDiscovered int
	MoviesPersisted  int
	Skipped          []SkippedMovie
	PeopleAdmitted   int
}

// Orchestrator drives one ingestion run end to end: pages → enrichment →
// genre/person resolution → per-movie transactional persistence.
type Orchestrator struct {
	Pages    PageFetcher
	Enricher *Enricher
	Genres   *GenreCatalog
	People   *IdentityRegistry
	Store    store.Gateway
	Log      *zap.Logger

	mu    sync.Mutex
	state State
}

func NewOrchestrator(pages PageFetcher, enricher *Enricher, genres *GenreCatalog, people *IdentityRegistry, gw store.Gateway, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Pages:    pages,
		Enricher: enricher,
		Genres:   genres,
		People:   people,
		Store:    gw,
		Log:      log,
	}
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.Log.Debug("run state changed", zap.String("state", s.String()))
}

// Run ingests up to pages discovery pages. A page-level failure skips that
// page; the run fails only when cancelled or when the very first page fails
// and no movies were discovered at all.
func (o *Orchestrator) Run(ctx context.Context, pages int) (*Summary, error) {
	if pages < 1 {
		return nil, fmt.Errorf("pipeline: page count must be >= 1, got %d", pages)
	}

	summary := &Summary{PagesRequested: pages}
	var all []*Movie

	var firstPageErr error
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			o.setState(StateFailed)
			return nil, err
		}
		o.setState(StateFetchingPages)

		result, err := o.Pages.DiscoverPage(ctx, page)
		if err != nil {
			if page == 1 {
				firstPageErr = err
			}
			summary.PagesSkipped++
			o.Log.Warn("discovery page failed, skipping",
				zap.Int("page", page), zap.Error(err))
			continue
		}
		summary.PagesFetched++

		movies := fromSummaries(result.Results)
		summary.MoviesDiscovered += len(movies)

		o.setState(StateEnriching)
		if err := o.Enricher.EnrichPage(ctx, movies); err != nil {
			o.setState(StateFailed)
			return nil, err
		}
		all = append(all, movies...)

		if result.TotalPages > 0 && page >= result.TotalPages {
			break
		}
	}

	if len(all) == 0 && firstPageErr != nil {
		o.setState(StateFailed)
		return nil, fmt.Errorf("pipeline: discovery produced no movies: %w", firstPageErr)
	}

	o.setState(StateResolvingReferenceData)
	resolved := o.resolveAll(ctx, all, summary)

	o.setState(StatePersisting)
	for _, m := range resolved {
		if err := ctx.Err(); err != nil {
			o.setState(StateFailed)
			return nil, err
		}
		if err := o.Store.CreateMovie(ctx, m); err != nil {
			summary.Skipped = append(summary.Skipped, SkippedMovie{
				ExternalID: m.ExternalID,
				Title:      m.Title,
				Reason:     err.Error(),
			})
			var dup *store.DuplicateEntityError
			if errors.As(err, &dup) {
				o.Log.Warn("movie already exists, skipping",
					zap.Int64("movie_id", m.ExternalID), zap.String("title", m.Title))
			} else {
				o.Log.Error("movie persistence failed, skipping",
					zap.Int64("movie_id", m.ExternalID), zap.String("title", m.Title), zap.Error(err))
			}
			continue
		}
		summary.MoviesPersisted++
		o.Log.Info("movie persisted",
			zap.Int64("movie_id", m.ExternalID), zap.String("title", m.Title))
	}

	summary.PeopleAdmitted = o.People.Admitted()
	o.setState(StateDone)
	return summary, nil
}

// resolveAll swaps every movie's transient genre codes and credit entries for
// shared persisted handles. Unmapped genre codes drop only that genre from
// that movie; a reference-data store failure skips the movie.
func (o *Orchestrator) resolveAll(ctx context.Context, movies []*Movie, summary *Summary) []store.Movie {
	out := make([]store.Movie, 0, len(movies))

	for _, m := range movies {
		record := store.Movie{
			ExternalID:  m.ExternalID,
			Title:       m.Title,
			ReleaseDate: m.ReleaseDate,
			VoteAverage: m.VoteAverage,
		}

		skip := false
		for _, code := range m.GenreCodes {
			g, err := o.Genres.Resolve(ctx, code)
			if err != nil {
				var unmapped *UnmappedGenreError
				if errors.As(err, &unmapped) {
					o.Log.Warn("unmapped genre code, dropping genre from movie",
						zap.Int("code", code), zap.Int64("movie_id", m.ExternalID))
					continue
				}
				o.recordResolveSkip(summary, m, "genre resolution failed: "+err.Error())
				skip = true
				break
			}
			record.Genres = append(record.Genres, g)
		}
		if skip {
			continue
		}

		for _, c := range m.Cast {
			shared, _, err := o.People.Admit(ctx, store.Person{ExternalID: c.ID, Name: c.Name, Gender: c.Gender})
			if err != nil {
				o.recordResolveSkip(summary, m, "cast resolution failed: "+err.Error())
				skip = true
				break
			}
			record.Cast = append(record.Cast, shared)
		}
		if skip {
			continue
		}

		for _, d := range m.Directors {
			shared, _, err := o.People.Admit(ctx, store.Person{ExternalID: d.ID, Name: d.Name, Gender: d.Gender})
			if err != nil {
				o.recordResolveSkip(summary, m, "director resolution failed: "+err.Error())
				skip = true
				break
			}
			record.Directors = append(record.Directors, shared)
		}
		if skip {
			continue
		}

		out = append(out, record)
	}
	return out
}

func (o *Orchestrator) recordResolveSkip(summary *Summary, m *Movie, reason string) {
	summary.Skipped = append(summary.Skipped, SkippedMovie{
		ExternalID: m.ExternalID,
		Title:      m.Title,
		Reason:     reason,
	})
	o.Log.Error("reference data resolution failed, skipping movie",
		zap.Int64("movie_id", m.ExternalID), zap.String("title", m.Title), zap.String("reason", reason))
}
