package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// IngestConfig configures one ingestion run. Everything comes from the
// environment; nothing in the pipeline reads env vars directly.
type IngestConfig struct {
	LogLevel    string
	DatabaseURL string
	NATSURL     string // optional; enables the outbox publisher when set

	TMDBAPIKey  string
	TMDBBaseURL string

	DiscoverLanguage       string
	DiscoverReleaseDateGTE string

	Pages   int
	Workers int
}

// APIConfig configures the read-side HTTP API.
type APIConfig struct {
	LogLevel    string
	DatabaseURL string
	HTTPAddr    string
}

func LoadIngest() (IngestConfig, error) {
	cfg := IngestConfig{
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DatabaseURL:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
		NATSURL:                strings.TrimSpace(os.Getenv("NATS_URL")),
		TMDBAPIKey:             strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:            getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		DiscoverLanguage:       getEnv("DISCOVER_LANGUAGE", "da"),
		DiscoverReleaseDateGTE: getEnv("DISCOVER_RELEASE_DATE_GTE", "2019-01-01"),
		Pages:                  getEnvInt("INGEST_PAGES", 10),
		Workers:                getEnvInt("INGEST_WORKERS", 8),
	}
	if cfg.TMDBAPIKey == "" {
		return IngestConfig{}, errors.New("TMDB_API_KEY is required")
	}
	if cfg.DatabaseURL == "" {
		return IngestConfig{}, errors.New("DATABASE_URL is required")
	}
	if cfg.Pages < 1 {
		return IngestConfig{}, errors.New("INGEST_PAGES must be >= 1")
	}
	if cfg.Workers < 1 {
		return IngestConfig{}, errors.New("INGEST_WORKERS must be >= 1")
	}
	return cfg, nil
}

func LoadAPI() (APIConfig, error) {
	cfg := APIConfig{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
	}
	if cfg.DatabaseURL == "" {
		return APIConfig{}, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
