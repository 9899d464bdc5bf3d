package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/urlutil"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS events (
	id          UUID PRIMARY KEY,
	url_key     TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	country     TEXT,
	starts_at   TIMESTAMPTZ,
	search_text TEXT NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS extraction_cache (
	url_hash   TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_country ON events(country);
CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at);
CREATE INDEX IF NOT EXISTS idx_extraction_cache_expires ON extraction_cache(expires_at);
`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindEvents(ctx context.Context, text, country string, from, to time.Time, limit int) ([]model.ExtractedEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, tok := range tokenize(text) {
		conds = append(conds, "search_text LIKE "+arg("%"+tok+"%"))
	}
	if country != "" && country != model.CountryAll {
		conds = append(conds, "country = "+arg(strings.ToUpper(country)))
	}
	if !from.IsZero() {
		conds = append(conds, "starts_at >= "+arg(from))
	}
	if !to.IsZero() {
		conds = append(conds, "starts_at <= "+arg(to))
	}

	q := "SELECT data FROM events"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY starts_at LIMIT " + arg(limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find events")
	}
	defer rows.Close()

	var out []model.ExtractedEvent
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		var ev model.ExtractedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal event")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate events")
}

func (s *PostgresStore) UpsertEvent(ctx context.Context, ev model.ExtractedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal event")
	}

	var startsAt any
	if ev.StartsAt != nil {
		startsAt = ev.StartsAt.UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO events (id, url_key, title, country, starts_at, search_text, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url_key) DO UPDATE SET
			title = EXCLUDED.title,
			country = EXCLUDED.country,
			starts_at = EXCLUDED.starts_at,
			search_text = EXCLUDED.search_text,
			data = EXCLUDED.data,
			updated_at = now()`,
		uuid.New().String(),
		urlutil.Normalize(ev.URL),
		ev.Title,
		strings.ToUpper(ev.Country),
		startsAt,
		searchText(ev),
		data,
	)
	return eris.Wrap(err, "postgres: upsert event")
}

func (s *PostgresStore) GetCachedExtraction(ctx context.Context, urlHash string) (*model.ExtractedEvent, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM extraction_cache WHERE url_hash = $1 AND expires_at > now()`,
		urlHash,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached extraction")
	}

	var ev model.ExtractedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached extraction")
	}
	return &ev, nil
}

func (s *PostgresStore) SetCachedExtraction(ctx context.Context, urlHash string, ev *model.ExtractedEvent, ttl time.Duration) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cached extraction")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_cache (url_hash, data, cached_at, expires_at)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (url_hash) DO UPDATE SET
			data = EXCLUDED.data,
			cached_at = EXCLUDED.cached_at,
			expires_at = EXCLUDED.expires_at`,
		urlHash, data, time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached extraction")
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM extraction_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return tag.RowsAffected(), nil
}
