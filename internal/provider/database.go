package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/query"
)

// databaseScore reflects that locally curated events are already vetted.
const databaseScore = 0.9

// EventFinder is the slice of the store the database adapter needs.
type EventFinder interface {
	FindEvents(ctx context.Context, text, country string, from, to time.Time, limit int) ([]model.ExtractedEvent, error)
}

// Database looks events up in the local store. It is free, so it runs
// before any external provider; one or more hits short-circuit the rest of
// discovery.
type Database struct {
	finder EventFinder
	limit  int
}

// NewDatabase creates the local lookup adapter.
func NewDatabase(finder EventFinder, limit int) *Database {
	if limit <= 0 {
		limit = 20
	}
	return &Database{finder: finder, limit: limit}
}

func (d *Database) Name() string { return model.SourceDatabase }

func (d *Database) Search(ctx context.Context, q query.Query) ([]model.CandidateURL, error) {
	events, err := d.finder.FindEvents(ctx, q.Text, q.Country, q.From, q.To, d.limit)
	if err != nil {
		return nil, &ProviderError{Provider: d.Name(), Cause: err}
	}

	out := make([]model.CandidateURL, 0, len(events))
	for _, ev := range events {
		if ev.URL == "" {
			continue
		}
		out = append(out, model.CandidateURL{
			URL:    ev.URL,
			Score:  databaseScore,
			Reason: ev.Title,
			Source: model.SourceDatabase,
		})
	}
	if len(out) > 0 {
		zap.L().Info("local store satisfied discovery",
			zap.Int("events", len(out)),
		)
	}
	return out, nil
}
