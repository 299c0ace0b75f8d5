package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventMovieIngested = "movies.movie.ingested"

const pgUniqueViolation = "23505"

// PostgresGateway is the production Postgres-backed implementation.
type PostgresGateway struct {
	db *pgxpool.Pool
}

func NewPostgresGateway(db *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{db: db}
}

// ── Writes ─────────────────────────────────────────────────────────────────

// CreateMovie persists the movie row, its genre/cast/director associations and
// an outbox event in one transaction. The transaction never outlives the call.
func (s *PostgresGateway) CreateMovie(ctx context.Context, m Movie) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &PersistenceError{Op: "begin movie tx", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO movies (id, title, release_date, vote_average)
VALUES ($1,$2,$3,$4)`,
		m.ExternalID, m.Title, nullableDate(m.ReleaseDate), m.VoteAverage,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return &DuplicateEntityError{Entity: "movie", Key: strconv.FormatInt(m.ExternalID, 10)}
		}
		return &PersistenceError{Op: "insert movie", Err: err}
	}

	for i, g := range m.Genres {
		if _, err := tx.Exec(ctx, `
INSERT INTO movie_genres (movie_id, genre_id, position) VALUES ($1,$2::uuid,$3)
ON CONFLICT (movie_id, genre_id) DO NOTHING`,
			m.ExternalID, g.ID, i,
		); err != nil {
			return &PersistenceError{Op: "attach genre", Err: err}
		}
	}
	if err := insertPeopleLinks(ctx, tx, "movie_cast", m.ExternalID, m.Cast); err != nil {
		return err
	}
	if err := insertPeopleLinks(ctx, tx, "movie_directors", m.ExternalID, m.Directors); err != nil {
		return err
	}

	if err := insertOutboxEvent(ctx, tx, map[string]any{
		"movie_id": m.ExternalID,
		"title":    m.Title,
	}); err != nil {
		return &PersistenceError{Op: "insert outbox event", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &PersistenceError{Op: "commit movie tx", Err: err}
	}
	return nil
}

func (s *PostgresGateway) FindGenreByName(ctx context.Context, name string) (Genre, error) {
	var g Genre
	err := s.db.QueryRow(ctx, `SELECT id::text, name FROM genres WHERE name=$1`, name).
		Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Genre{}, ErrNotFound
		}
		return Genre{}, &PersistenceError{Op: "find genre", Err: err}
	}
	return g, nil
}

// CreateGenre is idempotent: concurrent creates of the same name converge on
// one row via the unique constraint.
func (s *PostgresGateway) CreateGenre(ctx context.Context, name string) (Genre, error) {
	var g Genre
	err := s.db.QueryRow(ctx, `
INSERT INTO genres (id, name) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text, name`,
		uuid.New(), name,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		return Genre{}, &PersistenceError{Op: "create genre", Err: err}
	}
	return g, nil
}

func (s *PostgresGateway) FindPersonByExternalID(ctx context.Context, externalID int64) (Person, error) {
	var p Person
	err := s.db.QueryRow(ctx,
		`SELECT id::text, external_id, name, gender FROM people WHERE external_id=$1`, externalID,
	).Scan(&p.ID, &p.ExternalID, &p.Name, &p.Gender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, ErrNotFound
		}
		return Person{}, &PersistenceError{Op: "find person", Err: err}
	}
	return p, nil
}

// CreatePerson is idempotent on external id, same discipline as CreateGenre.
func (s *PostgresGateway) CreatePerson(ctx context.Context, p Person) (Person, error) {
	var out Person
	err := s.db.QueryRow(ctx, `
INSERT INTO people (id, external_id, name, gender) VALUES ($1,$2,$3,$4)
ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name, gender = EXCLUDED.gender
RETURNING id::text, external_id, name, gender`,
		uuid.New(), p.ExternalID, p.Name, p.Gender,
	).Scan(&out.ID, &out.ExternalID, &out.Name, &out.Gender)
	if err != nil {
		return Person{}, &PersistenceError{Op: "create person", Err: err}
	}
	return out, nil
}

// ── Reads ──────────────────────────────────────────────────────────────────

func (s *PostgresGateway) MovieByExternalID(ctx context.Context, externalID int64) (Movie, error) {
	var m Movie
	var releaseDate *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT id, title, release_date, vote_average FROM movies WHERE id=$1`, externalID,
	).Scan(&m.ExternalID, &m.Title, &releaseDate, &m.VoteAverage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movie{}, ErrNotFound
		}
		return Movie{}, &PersistenceError{Op: "find movie", Err: err}
	}
	if releaseDate != nil {
		m.ReleaseDate = *releaseDate
	}

	if m.Genres, err = s.movieGenres(ctx, externalID); err != nil {
		return Movie{}, err
	}
	if m.Cast, err = s.moviePeople(ctx, "movie_cast", externalID); err != nil {
		return Movie{}, err
	}
	if m.Directors, err = s.moviePeople(ctx, "movie_directors", externalID); err != nil {
		return Movie{}, err
	}
	return m, nil
}

func (s *PostgresGateway) MoviesByTitle(ctx context.Context, title string) ([]Movie, error) {
	return s.queryMovies(ctx,
		`SELECT id, title, release_date, vote_average FROM movies WHERE title=$1 ORDER BY id`, title)
}

func (s *PostgresGateway) ListMoviesByTitle(ctx context.Context) ([]Movie, error) {
	return s.queryMovies(ctx,
		`SELECT id, title, release_date, vote_average FROM movies ORDER BY title ASC, id ASC`)
}

func (s *PostgresGateway) ListMoviesByReleaseDate(ctx context.Context) ([]Movie, error) {
	return s.queryMovies(ctx,
		`SELECT id, title, release_date, vote_average FROM movies ORDER BY release_date DESC NULLS LAST, id ASC`)
}

func (s *PostgresGateway) TopRatedMovies(ctx context.Context, limit int) ([]Movie, error) {
	return s.queryMovies(ctx,
		`SELECT id, title, release_date, vote_average FROM movies ORDER BY vote_average DESC, id ASC LIMIT $1`, limit)
}

func (s *PostgresGateway) LowestRatedMovies(ctx context.Context, limit int) ([]Movie, error) {
	return s.queryMovies(ctx,
		`SELECT id, title, release_date, vote_average FROM movies ORDER BY vote_average ASC, id ASC LIMIT $1`, limit)
}

func (s *PostgresGateway) AverageRating(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(AVG(vote_average), 0) FROM movies`).Scan(&avg)
	if err != nil {
		return 0, &PersistenceError{Op: "average rating", Err: err}
	}
	return avg, nil
}

// ── helpers ────────────────────────────────────────────────────────────────

func insertPeopleLinks(ctx context.Context, tx pgx.Tx, table string, movieID int64, people []Person) error {
	for i, p := range people {
		q := fmt.Sprintf(`
INSERT INTO %s (movie_id, person_id, position) VALUES ($1,$2::uuid,$3)
ON CONFLICT (movie_id, person_id) DO NOTHING`, table)
		if _, err := tx.Exec(ctx, q, movieID, p.ID, i); err != nil {
			return &PersistenceError{Op: "attach " + table, Err: err}
		}
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO movie_outbox (id, event_type, payload) VALUES ($1,$2,$3)`,
		uuid.New(), eventMovieIngested, b,
	)
	return err
}

func (s *PostgresGateway) queryMovies(ctx context.Context, q string, args ...any) ([]Movie, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "query movies", Err: err}
	}
	defer rows.Close()

	var out []Movie
	for rows.Next() {
		var m Movie
		var releaseDate *time.Time
		if err := rows.Scan(&m.ExternalID, &m.Title, &releaseDate, &m.VoteAverage); err != nil {
			return nil, &PersistenceError{Op: "scan movie", Err: err}
		}
		if releaseDate != nil {
			m.ReleaseDate = *releaseDate
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate movies", Err: err}
	}
	return out, nil
}

func (s *PostgresGateway) movieGenres(ctx context.Context, movieID int64) ([]Genre, error) {
	rows, err := s.db.Query(ctx, `
SELECT g.id::text, g.name
FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
WHERE mg.movie_id=$1 ORDER BY mg.position`, movieID)
	if err != nil {
		return nil, &PersistenceError{Op: "query movie genres", Err: err}
	}
	defer rows.Close()

	var out []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, &PersistenceError{Op: "scan genre", Err: err}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresGateway) moviePeople(ctx context.Context, table string, movieID int64) ([]Person, error) {
	q := fmt.Sprintf(`
SELECT p.id::text, p.external_id, p.name, p.gender
FROM %s l JOIN people p ON p.id = l.person_id
WHERE l.movie_id=$1 ORDER BY l.position`, table)
	rows, err := s.db.Query(ctx, q, movieID)
	if err != nil {
		return nil, &PersistenceError{Op: "query " + table, Err: err}
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Gender); err != nil {
			return nil, &PersistenceError{Op: "scan person", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
