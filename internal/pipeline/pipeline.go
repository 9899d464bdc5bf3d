// Package pipeline wires discovery, rerank, prioritization, extraction,
// and the quality gate into one orchestrated run.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/discovery"
	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/quality"
	"github.com/sells-group/event-scout/internal/rerank"
)

// Stage interfaces keep the orchestrator testable; production wiring passes
// the concrete orchestrators from cmd.
type (
	// Discoverer produces candidate URLs.
	Discoverer interface {
		Discover(ctx context.Context, req model.SearchRequest) discovery.Result
	}
	// Reranker filters and rescores candidates.
	Reranker interface {
		Rerank(ctx context.Context, cands []model.CandidateURL, country string, seen *rerank.SeenSet) []model.CandidateURL
	}
	// Prioritizer scores and prunes candidates for extraction.
	Prioritizer interface {
		Prioritize(ctx context.Context, req model.SearchRequest, cands []model.CandidateURL) []model.CandidateURL
	}
	// Extractor turns candidates into structured events.
	Extractor interface {
		Extract(ctx context.Context, cands []model.CandidateURL) []model.ExtractedEvent
	}
	// Gate scores events against the request window.
	Gate interface {
		ScoreAndFilter(events []model.ExtractedEvent, window model.Window, country string) (solid, all []model.ExtractedEvent)
	}
	// EventWriter persists solid hits for future local lookups. Optional.
	EventWriter interface {
		UpsertEvent(ctx context.Context, ev model.ExtractedEvent) error
	}
)

// Options tunes the top-level run.
type Options struct {
	MinSolidHits int
	ExpandDays   int
}

func (o Options) withDefaults() Options {
	if o.MinSolidHits <= 0 {
		o.MinSolidHits = 3
	}
	if o.ExpandDays <= 0 {
		o.ExpandDays = 30
	}
	return o
}

// maxExpansions bounds the auto-expand loop to one extra cycle per request.
const maxExpansions = 1

// Pipeline orchestrates one search request end to end.
type Pipeline struct {
	discoverer  Discoverer
	reranker    Reranker
	prioritizer Prioritizer
	extractor   Extractor
	gate        Gate
	writer      EventWriter // may be nil
	opts        Options
}

// New creates a pipeline. writer may be nil to skip persistence.
func New(d Discoverer, r Reranker, p Prioritizer, e Extractor, g Gate, w EventWriter, opts Options) *Pipeline {
	return &Pipeline{
		discoverer:  d,
		reranker:    r,
		prioritizer: p,
		extractor:   e,
		gate:        g,
		writer:      w,
		opts:        opts.withDefaults(),
	}
}

// runState accumulates facts across the initial run and the optional
// expanded rerun.
type runState struct {
	seen *rerank.SeenSet

	totalCandidates int
	prioritized     int
	extracted       int
	providers       []string
	cached          bool
	allScored       []model.ExtractedEvent
}

// Run executes the pipeline. The only error that propagates is
// *model.ValidationError; every downstream failure degrades the result.
func (p *Pipeline) Run(ctx context.Context, req model.SearchRequest) (*model.PipelineResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := zap.L().With(zap.String("query", req.UserText), zap.String("country", req.Country))
	log.Info("pipeline: starting run")

	state := &runState{seen: rerank.NewSeenSet()}
	solid := p.runOnce(ctx, req, state)

	expanded := false
	if len(solid) < p.opts.MinSolidHits && req.HasWindow() {
		for i := 0; i < maxExpansions && len(solid) < p.opts.MinSolidHits; i++ {
			wider := req.WithDateTo(req.DateTo.AddDate(0, 0, p.opts.ExpandDays))
			log.Info("pipeline: expanding date window",
				zap.Int("solid_hits", len(solid)),
				zap.Int("min_solid_hits", p.opts.MinSolidHits),
				zap.Time("new_date_to", wider.DateTo),
			)
			solid = quality.MergeSolidHits(solid, p.runOnce(ctx, wider, state))
			expanded = true
		}
	}

	events := p.finalize(ctx, solid)

	if len(events) == 0 && state.totalCandidates == 0 && len(state.providers) == 0 {
		log.Warn("pipeline: no usable providers, returning demo events")
		events = demoEvents(req)
		state.providers = []string{model.SourceDemo}
	}

	meta := model.Metadata{
		TotalCandidates:       state.totalCandidates,
		PrioritizedCandidates: state.prioritized,
		ExtractedCandidates:   state.extracted,
		TotalDurationMs:       time.Since(start).Milliseconds(),
		AverageConfidence:     averageConfidence(events),
		SourceBreakdown:       sourceBreakdown(events),
		ProvidersUsed:         state.providers,
		Cached:                state.cached,
		Expanded:              expanded,
		Partial:               len(events) < p.opts.MinSolidHits,
	}

	log.Info("pipeline: run complete",
		zap.Int("events", len(events)),
		zap.Int("total_candidates", meta.TotalCandidates),
		zap.Bool("expanded", meta.Expanded),
		zap.Int64("duration_ms", meta.TotalDurationMs),
	)
	return &model.PipelineResult{Events: events, Metadata: meta}, nil
}

// runOnce executes Discovery → Rerank → Prioritize → Extract → Quality for
// one window and returns the solid hits.
func (p *Pipeline) runOnce(ctx context.Context, req model.SearchRequest, state *runState) []model.ExtractedEvent {
	stage := stageTimer()

	disc := p.discoverer.Discover(ctx, req)
	state.totalCandidates += len(disc.Candidates)
	state.cached = state.cached || disc.Cached
	state.providers = mergeProviders(state.providers, disc.Providers)
	stage("discover", len(disc.Candidates))

	kept := p.reranker.Rerank(ctx, disc.Candidates, req.Country, state.seen)
	stage("rerank", len(kept))

	prioritized := p.prioritizer.Prioritize(ctx, req, kept)
	state.prioritized += len(prioritized)
	stage("prioritize", len(prioritized))

	extracted := p.extractor.Extract(ctx, prioritized)
	state.extracted += len(extracted)
	stage("extract", len(extracted))

	solid, all := p.gate.ScoreAndFilter(extracted, req.Window(), req.Country)
	state.allScored = append(state.allScored, all...)
	stage("quality", len(solid))

	return solid
}

// finalize applies the hard speaker rule, persists, and ranks.
func (p *Pipeline) finalize(ctx context.Context, solid []model.ExtractedEvent) []model.ExtractedEvent {
	events := make([]model.ExtractedEvent, 0, len(solid))
	for _, ev := range solid {
		valid := ev.ValidSpeakers()
		if len(valid) == 0 {
			zap.L().Info("excluding event without valid speakers",
				zap.String("url", ev.URL),
			)
			continue
		}
		ev.Speakers = valid
		events = append(events, ev)
	}

	quality.Rank(events)

	if p.writer != nil {
		for _, ev := range events {
			if err := p.writer.UpsertEvent(ctx, ev); err != nil {
				zap.L().Warn("persisting event failed",
					zap.String("url", ev.URL),
					zap.Error(err),
				)
			}
		}
	}
	return events
}

// stageTimer logs per-stage durations and output counts.
func stageTimer() func(name string, count int) {
	last := time.Now()
	return func(name string, count int) {
		now := time.Now()
		zap.L().Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int("count", count),
			zap.Int64("duration_ms", now.Sub(last).Milliseconds()),
		)
		last = now
	}
}

func mergeProviders(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p] = true
	}
	for _, p := range found {
		if !seen[p] {
			seen[p] = true
			existing = append(existing, p)
		}
	}
	return existing
}

func averageConfidence(events []model.ExtractedEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var sum float64
	for _, ev := range events {
		sum += ev.Confidence
	}
	return sum / float64(len(events))
}

func sourceBreakdown(events []model.ExtractedEvent) map[string]int {
	out := make(map[string]int, 4)
	for _, ev := range events {
		out[ev.Source]++
	}
	return out
}
