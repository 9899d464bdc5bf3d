// Package store persists curated events and the extraction cache behind a
// driver-agnostic interface.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/event-scout/internal/model"
)

// Store is the persistence interface for the pipeline.
type Store interface {
	// Curated local events, consulted before any external provider.
	FindEvents(ctx context.Context, text, country string, from, to time.Time, limit int) ([]model.ExtractedEvent, error)
	UpsertEvent(ctx context.Context, ev model.ExtractedEvent) error

	// Content-addressed extraction cache, keyed by the hash of the
	// normalized URL.
	GetCachedExtraction(ctx context.Context, urlHash string) (*model.ExtractedEvent, error)
	SetCachedExtraction(ctx context.Context, urlHash string, ev *model.ExtractedEvent, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// tokenize splits free text into up to three lowercased match terms.
// Limiting the term count keeps the LIKE chain cheap on large tables.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return fields
}
