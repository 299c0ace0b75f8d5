package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/movie-ingest/internal/config"
	"github.com/example/movie-ingest/internal/outbox"
	"github.com/example/movie-ingest/internal/pipeline"
	"github.com/example/movie-ingest/internal/platform/db"
	"github.com/example/movie-ingest/internal/platform/logging"
	"github.com/example/movie-ingest/internal/platform/natsconn"
	"github.com/example/movie-ingest/internal/platform/run"
	"github.com/example/movie-ingest/internal/store"
	"github.com/example/movie-ingest/internal/tmdb"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadIngest()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, "ingest")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	runner := run.New(log)
	run.Exit(runner.WithSignals(func(ctx context.Context) error {
		return ingest(ctx, cfg, log)
	}))
}

func ingest(ctx context.Context, cfg config.IngestConfig, log *zap.Logger) error {
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	gateway := store.NewPostgresGateway(pool)
	client := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBBaseURL, tmdb.DiscoverFilter{
		OriginalLanguage: cfg.DiscoverLanguage,
		ReleaseDateGTE:   cfg.DiscoverReleaseDateGTE,
	})

	orch := pipeline.NewOrchestrator(
		client,
		pipeline.NewEnricher(client, log, cfg.Workers),
		pipeline.NewGenreCatalog(gateway),
		pipeline.NewIdentityRegistry(gateway),
		gateway,
		log,
	)

	summary, err := orch.Run(ctx, cfg.Pages)
	if err != nil {
		return err
	}

	log.Info("ingestion finished",
		zap.Int("pages_requested", summary.PagesRequested),
		zap.Int("pages_fetched", summary.PagesFetched),
		zap.Int("pages_skipped", summary.PagesSkipped),
		zap.Int("movies_discovered", summary.MoviesDiscovered),
		zap.Int("movies_persisted", summary.MoviesPersisted),
		zap.Int("movies_skipped", len(summary.Skipped)),
		zap.Int("people_admitted", summary.PeopleAdmitted),
	)
	for _, s := range summary.Skipped {
		log.Warn("movie skipped",
			zap.Int64("external_id", s.ExternalID),
			zap.String("title", s.Title),
			zap.String("reason", s.Reason),
		)
	}

	if err := reportCatalog(ctx, gateway, log); err != nil {
		return err
	}

	if cfg.NATSURL != "" {
		if err := drainOutbox(ctx, cfg.NATSURL, pool, log); err != nil {
			return err
		}
	}
	return nil
}

// reportCatalog logs the persisted catalog sorted by title, plus the
// aggregate rating, so a run's output doubles as a quick sanity check.
func reportCatalog(ctx context.Context, gateway store.Gateway, log *zap.Logger) error {
	movies, err := gateway.ListMoviesByTitle(ctx)
	if err != nil {
		return err
	}
	for _, m := range movies {
		fields := []zap.Field{
			zap.Int64("external_id", m.ExternalID),
			zap.Float64("vote_average", m.VoteAverage),
		}
		if !m.ReleaseDate.IsZero() {
			fields = append(fields, zap.String("release_date", m.ReleaseDate.Format("2006-01-02")))
		}
		log.Info("movie "+m.Title, fields...)
	}

	avg, err := gateway.AverageRating(ctx)
	if err != nil {
		return err
	}
	log.Info("catalog summary",
		zap.Int("movies", len(movies)),
		zap.Float64("average_rating", avg),
	)
	return nil
}

func drainOutbox(ctx context.Context, natsURL string, pool *pgxpool.Pool, log *zap.Logger) error {
	nc, err := natsconn.Connect(natsconn.Options{URL: natsURL})
	if err != nil {
		return err
	}
	defer nc.Close()

	publisher, err := outbox.NewPublisher(log, pool, nc)
	if err != nil {
		return err
	}
	if err := publisher.Flush(ctx); err != nil {
		return err
	}
	log.Info("outbox drained")
	return nil
}
