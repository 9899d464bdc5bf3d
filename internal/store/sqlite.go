package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/urlutil"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	url_key     TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	country     TEXT,
	starts_at   DATETIME,
	search_text TEXT NOT NULL,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS extraction_cache (
	url_hash   TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_country ON events(country);
CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at);
CREATE INDEX IF NOT EXISTS idx_extraction_cache_expires ON extraction_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindEvents(ctx context.Context, text, country string, from, to time.Time, limit int) ([]model.ExtractedEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		conds []string
		args  []any
	)
	for _, tok := range tokenize(text) {
		conds = append(conds, "search_text LIKE ?")
		args = append(args, "%"+tok+"%")
	}
	if country != "" && country != model.CountryAll {
		conds = append(conds, "country = ?")
		args = append(args, strings.ToUpper(country))
	}
	if !from.IsZero() {
		conds = append(conds, "starts_at >= ?")
		args = append(args, sqliteTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "starts_at <= ?")
		args = append(args, sqliteTime(to))
	}

	q := "SELECT data FROM events"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY starts_at LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find events")
	}
	defer rows.Close()

	var out []model.ExtractedEvent
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		var ev model.ExtractedEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal event")
		}
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate events")
}

func (s *SQLiteStore) UpsertEvent(ctx context.Context, ev model.ExtractedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal event")
	}

	var startsAt any
	if ev.StartsAt != nil {
		startsAt = sqliteTime(*ev.StartsAt)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, url_key, title, country, starts_at, search_text, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url_key) DO UPDATE SET
			title = excluded.title,
			country = excluded.country,
			starts_at = excluded.starts_at,
			search_text = excluded.search_text,
			data = excluded.data,
			updated_at = datetime('now')`,
		uuid.New().String(),
		urlutil.Normalize(ev.URL),
		ev.Title,
		strings.ToUpper(ev.Country),
		startsAt,
		searchText(ev),
		string(data),
	)
	return eris.Wrap(err, "sqlite: upsert event")
}

func (s *SQLiteStore) GetCachedExtraction(ctx context.Context, urlHash string) (*model.ExtractedEvent, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM extraction_cache WHERE url_hash = ? AND expires_at > datetime('now')`,
		urlHash,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached extraction")
	}

	var ev model.ExtractedEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached extraction")
	}
	return &ev, nil
}

func (s *SQLiteStore) SetCachedExtraction(ctx context.Context, urlHash string, ev *model.ExtractedEvent, ttl time.Duration) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cached extraction")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extraction_cache (url_hash, data, cached_at, expires_at)
		VALUES (?, ?, datetime('now'), ?)
		ON CONFLICT(url_hash) DO UPDATE SET
			data = excluded.data,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		urlHash, string(data), sqliteTime(time.Now().Add(ttl)),
	)
	return eris.Wrap(err, "sqlite: set cached extraction")
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM extraction_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

// sqliteTime renders a timestamp in the same format datetime('now')
// produces, so stored values compare correctly.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// searchText flattens the fields the text match runs over.
func searchText(ev model.ExtractedEvent) string {
	parts := []string{ev.Title, ev.Description, ev.City, ev.Venue}
	return strings.ToLower(strings.Join(parts, " "))
}
