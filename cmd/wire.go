package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/discovery"
	"github.com/sells-group/event-scout/internal/extract"
	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/pipeline"
	"github.com/sells-group/event-scout/internal/prioritize"
	"github.com/sells-group/event-scout/internal/provider"
	"github.com/sells-group/event-scout/internal/quality"
	"github.com/sells-group/event-scout/internal/query"
	"github.com/sells-group/event-scout/internal/rerank"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/internal/store"
	"github.com/sells-group/event-scout/pkg/anthropic"
	"github.com/sells-group/event-scout/pkg/cse"
	"github.com/sells-group/event-scout/pkg/firecrawl"
)

// noopProvider stands in when no search credentials exist; discovery then
// yields nothing and the pipeline's demo fallback takes over.
type noopProvider struct{}

func (noopProvider) Name() string { return "none" }

func (noopProvider) Search(context.Context, query.Query) ([]model.CandidateURL, error) {
	return nil, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "eventscout.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildPipeline assembles every stage from configuration. st may be nil;
// the pipeline then runs without local lookups or persistence.
func buildPipeline(st store.Store) (*pipeline.Pipeline, error) {
	lib, err := query.LoadLibrary(cfg.Query.TemplatesPath)
	if err != nil {
		return nil, err
	}
	builder := query.NewBuilder(lib, cfg.Query.MaxLength)

	var primary, fallback, database provider.Provider
	var scraper firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		scraper = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		primary = provider.NewFirecrawl(scraper, cfg.Discovery.ResultsPerQuery)
	}
	if cfg.CSE.Key != "" && cfg.CSE.CX != "" {
		fallback = provider.NewCSE(cse.NewClient(cfg.CSE.Key, cfg.CSE.CX, cse.WithBaseURL(cfg.CSE.BaseURL)), cfg.Discovery.ResultsPerQuery)
	}
	if st != nil {
		database = provider.NewDatabase(st, cfg.Discovery.MaxCandidates)
	}
	if primary == nil && fallback != nil {
		// No crawler credentials: promote the web search API so discovery
		// still fans out over something.
		primary, fallback = fallback, nil
		zap.L().Warn("no primary search credentials, using fallback provider as primary")
	}
	if primary == nil {
		zap.L().Warn("no search provider credentials configured, pipeline will degrade to demo output")
		primary = noopProvider{}
	}

	var modelClient anthropic.Client
	if cfg.Anthropic.Enabled && cfg.Anthropic.Key != "" {
		modelClient = anthropic.NewClient(cfg.Anthropic.Key)
	}

	breakers := resilience.NewBreakerSet(time.Duration(cfg.Breaker.CooldownSecs) * time.Second)

	disc := discovery.New(primary, fallback, database, builder, breakers, resilience.DefaultRetryConfig(), discovery.Options{
		MaxConcurrency: cfg.Discovery.MaxConcurrency,
		MaxCandidates:  cfg.Discovery.MaxCandidates,
		CacheTTL:       time.Duration(cfg.Discovery.CacheTTLMinutes) * time.Minute,
	})

	prio := prioritize.New(modelClient, prioritize.Options{
		Model:       cfg.Anthropic.Model,
		ChunkSize:   cfg.Prioritize.ChunkSize,
		Threshold:   cfg.Prioritize.Threshold,
		Timeout:     time.Duration(cfg.Prioritize.TimeoutSecs) * time.Second,
		MaxRequeues: cfg.Prioritize.MaxRequeues,
		MinInterval: time.Duration(cfg.Prioritize.MinIntervalMs) * time.Millisecond,
	})

	var extractCache extract.Cache
	if st != nil {
		extractCache = st
	}
	ext := extract.New(scraper, modelClient, extractCache, extract.Options{
		Model:               cfg.Anthropic.Model,
		MaxURLs:             cfg.Extract.MaxURLs,
		MaxConcurrency:      cfg.Extract.MaxConcurrency,
		CallBudget:          cfg.Extract.CallBudget,
		CallsPerURL:         cfg.Extract.CallsPerURL,
		ScrapeTimeout:       time.Duration(cfg.Extract.ScrapeTimeoutSecs) * time.Second,
		EarlyStopTarget:     cfg.Extract.EarlyStopTarget,
		ConfidenceThreshold: cfg.Extract.ConfidenceThreshold,
		CacheTTL:            time.Duration(cfg.Extract.CacheTTLHours) * time.Hour,
	})

	var writer pipeline.EventWriter
	if st != nil {
		writer = st
	}
	return pipeline.New(disc, rerank.New(nil), prio, ext, quality.NewGate(cfg.Quality.Threshold), writer, pipeline.Options{
		MinSolidHits: cfg.Quality.MinSolidHits,
		ExpandDays:   cfg.Quality.ExpandDays,
	}), nil
}
