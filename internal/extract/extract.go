// Package extract turns prioritized candidate URLs into structured events
// via deep crawling and model-based metadata and speaker extraction.
package extract

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/internal/urlutil"
	"github.com/sells-group/event-scout/pkg/anthropic"
	"github.com/sells-group/event-scout/pkg/firecrawl"
)

// maxPromptBytes bounds how much page markdown goes into a model prompt.
const maxPromptBytes = 12000

// Options tunes the extraction stage.
type Options struct {
	Model               string
	MaxURLs             int
	MaxConcurrency      int
	CallBudget          int
	CallsPerURL         int
	ScrapeTimeout       time.Duration
	EarlyStopTarget     int
	ConfidenceThreshold float64
	CacheTTL            time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxURLs <= 0 {
		o.MaxURLs = 12
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 8
	}
	if o.CallBudget <= 0 {
		o.CallBudget = 36
	}
	if o.CallsPerURL <= 0 {
		o.CallsPerURL = 3
	}
	if o.ScrapeTimeout <= 0 {
		o.ScrapeTimeout = 30 * time.Second
	}
	if o.EarlyStopTarget <= 0 {
		o.EarlyStopTarget = 10
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = 0.6
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	return o
}

// Cache is the persistent extraction cache, keyed by the hash of the
// normalized URL. Both methods tolerate a nil receiver slot upstream.
type Cache interface {
	GetCachedExtraction(ctx context.Context, urlHash string) (*model.ExtractedEvent, error)
	SetCachedExtraction(ctx context.Context, urlHash string, ev *model.ExtractedEvent, ttl time.Duration) error
}

// Orchestrator runs bounded parallel extraction. A nil model client keeps
// the raw-scrape fallbacks; a nil cache disables caching.
type Orchestrator struct {
	scraper firecrawl.Client
	client  anthropic.Client
	cache   Cache
	opts    Options
}

// New creates an extraction orchestrator.
func New(scraper firecrawl.Client, client anthropic.Client, cache Cache, opts Options) *Orchestrator {
	return &Orchestrator{
		scraper: scraper,
		client:  client,
		cache:   cache,
		opts:    opts.withDefaults(),
	}
}

// Extract processes at most MaxURLs candidates and returns whatever events
// could be composed. Individual task failures cost a result, never the call.
func (o *Orchestrator) Extract(ctx context.Context, cands []model.CandidateURL) []model.ExtractedEvent {
	if len(cands) > o.opts.MaxURLs {
		zap.L().Info("capping extraction batch",
			zap.Int("prioritized", len(cands)),
			zap.Int("cap", o.opts.MaxURLs),
		)
		cands = cands[:o.opts.MaxURLs]
	}
	if len(cands) == 0 {
		return nil
	}

	slots := make([]*model.ExtractedEvent, len(cands))
	var highQuality atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency(len(cands)))
	for i, c := range cands {
		g.Go(func() error {
			// Soft budget: queued tasks are skipped once enough quality
			// results exist; tasks already running finish normally.
			if int(highQuality.Load()) >= o.opts.EarlyStopTarget {
				zap.L().Debug("early termination, skipping queued extraction",
					zap.String("url", c.URL),
				)
				return nil
			}
			ev := o.extractOne(gctx, c)
			if ev == nil {
				return nil
			}
			slots[i] = ev
			if o.isHighQuality(*ev) {
				highQuality.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.ExtractedEvent, 0, len(cands))
	for _, ev := range slots {
		if ev != nil {
			out = append(out, *ev)
		}
	}
	return out
}

// concurrency adapts parallelism to the batch so the whole stage stays
// inside the global call budget: min(maxCap, budget / callsPerURL / batch).
func (o *Orchestrator) concurrency(batch int) int {
	c := o.opts.CallBudget / o.opts.CallsPerURL / batch
	if c > o.opts.MaxConcurrency {
		c = o.opts.MaxConcurrency
	}
	if c < 1 {
		c = 1
	}
	return c
}

// extractOne runs the cache → scrape → metadata → speakers ladder for one
// candidate. Returns nil when the page yields nothing usable.
func (o *Orchestrator) extractOne(ctx context.Context, c model.CandidateURL) *model.ExtractedEvent {
	hash := urlutil.Hash(c.URL)
	if o.cache != nil {
		cached, err := o.cache.GetCachedExtraction(ctx, hash)
		if err != nil {
			zap.L().Warn("extraction cache read failed",
				zap.String("url", c.URL),
				zap.Error(err),
			)
		} else if cached != nil {
			return cached
		}
	}

	page := o.scrape(ctx, c.URL)
	if page == nil {
		return nil
	}

	ev := o.extractMetadata(ctx, c, page)
	ev.Speakers = o.extractSpeakers(ctx, c.URL, page)

	if o.cache != nil {
		if err := o.cache.SetCachedExtraction(ctx, hash, ev, o.opts.CacheTTL); err != nil {
			zap.L().Warn("extraction cache write failed",
				zap.String("url", c.URL),
				zap.Error(err),
			)
		}
	}
	return ev
}

// scrape crawls the page under its own deadline. A timeout is "no result",
// not a failure.
func (o *Orchestrator) scrape(ctx context.Context, url string) *firecrawl.PageData {
	if o.scraper == nil {
		return nil
	}
	scrapeCtx, cancel := context.WithTimeout(ctx, o.opts.ScrapeTimeout)
	defer cancel()

	resp, err := o.scraper.Scrape(scrapeCtx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		if resilience.IsTimeout(err) || scrapeCtx.Err() == context.DeadlineExceeded {
			zap.L().Info("scrape timed out",
				zap.String("url", url),
				zap.Duration("timeout", o.opts.ScrapeTimeout),
			)
		} else {
			zap.L().Warn("scrape failed",
				zap.String("url", url),
				zap.Error(err),
			)
		}
		return nil
	}
	if resp.Data.Markdown == "" && resp.Data.Metadata.Title == "" {
		return nil
	}
	return &resp.Data
}

// extractMetadata asks the model for structured event fields, falling back
// to the scraper's document metadata when the call or parse fails.
func (o *Orchestrator) extractMetadata(ctx context.Context, c model.CandidateURL, page *firecrawl.PageData) *model.ExtractedEvent {
	fallback := &model.ExtractedEvent{
		URL:         c.URL,
		Title:       page.Metadata.Title,
		Description: page.Metadata.Description,
		Confidence:  0.3,
		Source:      c.Source,
	}
	if o.client == nil {
		return fallback
	}

	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.opts.Model,
		MaxTokens: 1024,
		System:    metadataSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: "URL: " + c.URL + "\n\n" + truncate(page.Markdown, maxPromptBytes)},
		},
	})
	if err != nil {
		zap.L().Warn("metadata extraction failed, using page metadata",
			zap.String("url", c.URL),
			zap.Error(err),
		)
		return fallback
	}
	resp.Usage.LogCost(o.opts.Model, "extract-metadata")

	meta, ok := parseMetadata(resp.Text)
	if !ok {
		zap.L().Warn("metadata response unparseable, using page metadata",
			zap.String("url", c.URL),
		)
		return fallback
	}

	ev := &model.ExtractedEvent{
		URL:         c.URL,
		Title:       meta.Title,
		Description: meta.Description,
		City:        meta.City,
		Country:     meta.Country,
		Venue:       meta.Venue,
		Confidence:  clamp01(meta.Confidence),
		Source:      c.Source,
	}
	if ev.Title == "" {
		ev.Title = page.Metadata.Title
	}
	if ev.Description == "" {
		ev.Description = page.Metadata.Description
	}
	if t, ok := parseEventDate(meta.StartsAt); ok {
		ev.StartsAt = &t
	}
	return ev
}

// extractSpeakers asks the model for the speaker list. Any failure yields
// an empty list.
func (o *Orchestrator) extractSpeakers(ctx context.Context, url string, page *firecrawl.PageData) []model.Speaker {
	if o.client == nil {
		return nil
	}

	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.opts.Model,
		MaxTokens: 1024,
		System:    speakersSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: truncate(page.Markdown, maxPromptBytes)},
		},
	})
	if err != nil {
		zap.L().Warn("speaker extraction failed, continuing without speakers",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil
	}
	resp.Usage.LogCost(o.opts.Model, "extract-speakers")

	speakers := parseSpeakers(resp.Text)
	out := speakers[:0]
	for _, s := range speakers {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// isHighQuality implements the early-termination signal: title, date,
// location, at least one speaker, and confidence over the threshold.
func (o *Orchestrator) isHighQuality(ev model.ExtractedEvent) bool {
	if ev.Title == "" || ev.StartsAt == nil {
		return false
	}
	if ev.City == "" && ev.Venue == "" {
		return false
	}
	if len(ev.ValidSpeakers()) == 0 {
		return false
	}
	return ev.Confidence >= o.opts.ConfidenceThreshold
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
