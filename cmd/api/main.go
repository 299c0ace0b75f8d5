package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/movie-ingest/internal/config"
	"github.com/example/movie-ingest/internal/handlers"
	"github.com/example/movie-ingest/internal/platform/db"
	"github.com/example/movie-ingest/internal/platform/httpserver"
	"github.com/example/movie-ingest/internal/platform/logging"
	"github.com/example/movie-ingest/internal/platform/run"
	"github.com/example/movie-ingest/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAPI()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, "api")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	router := chi.NewRouter()
	httpserver.SetupRouter(router, httpserver.RouterConfig{
		ReadyFunc: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
	})
	handlers.Register(router, store.NewPostgresGateway(pool))

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTPAddr,
		ServiceName: "api",
		Logger:      log,
		Router:      router,
	})

	runner := run.New(log)
	run.Exit(runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutdown", zap.Error(err))
			}
		}()
		if err := srv.Start(log); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}))
}
