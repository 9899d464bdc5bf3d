// Package discovery fans search query variations out across providers and
// merges the results into a bounded, deduplicated candidate list.
package discovery

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/provider"
	"github.com/sells-group/event-scout/internal/query"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/internal/urlutil"
)

// eventSuffixes are appended to the base query to widen recall.
var eventSuffixes = []string{"conference", "summit", "workshop"}

// Options tunes the fan-out stage.
type Options struct {
	MaxConcurrency int
	MaxCandidates  int
	CacheTTL       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 12
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 50
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 30 * time.Minute
	}
	return o
}

// Result carries the merged candidates plus observability facts the
// pipeline surfaces in metadata.
type Result struct {
	Candidates []model.CandidateURL
	Providers  []string
	Cached     bool
}

// Orchestrator runs discovery. Discover never returns an error: provider
// failures degrade the result count instead of failing the call.
type Orchestrator struct {
	primary  provider.Provider
	fallback provider.Provider
	database provider.Provider // optional local short-circuit

	builder  *query.Builder
	breakers *resilience.BreakerSet
	retry    resilience.RetryConfig
	cache    *resilience.TTLCache[[]model.CandidateURL]
	flight   *resilience.FlightGroup

	opts Options
}

// New creates a discovery orchestrator. database may be nil.
func New(primary, fallback, database provider.Provider, builder *query.Builder, breakers *resilience.BreakerSet, retry resilience.RetryConfig, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		primary:  primary,
		fallback: fallback,
		database: database,
		builder:  builder,
		breakers: breakers,
		retry:    retry,
		cache:    resilience.NewTTLCache[[]model.CandidateURL](opts.CacheTTL),
		flight:   resilience.NewFlightGroup(),
		opts:     opts,
	}
}

// Discover produces candidate URLs for the request. Partial provider
// failures reduce the result; only context cancellation can empty it early.
func (o *Orchestrator) Discover(ctx context.Context, req model.SearchRequest) Result {
	base := o.builder.Build(req)

	key := resilience.CacheKey("discovery",
		strings.ToLower(base.Text), base.Country,
		base.From.Format(model.DateLayout), base.To.Format(model.DateLayout))
	if hit, ok := o.cache.Get(key); ok {
		zap.L().Info("discovery cache hit",
			zap.String("key", key),
			zap.Int("candidates", len(hit)),
		)
		return Result{Candidates: hit, Cached: true}
	}

	// The local store is free, so it goes first; any hit short-circuits
	// external search entirely.
	if o.database != nil {
		if local, err := o.database.Search(ctx, base); err != nil {
			zap.L().Warn("database lookup failed",
				zap.Error(err),
			)
		} else if len(local) > 0 {
			return Result{
				Candidates: o.capCandidates(dedupe(local)),
				Providers:  []string{o.database.Name()},
			}
		}
	}

	res := o.fanOut(ctx, req, base)
	if len(res.Candidates) > 0 {
		o.cache.Set(key, res.Candidates)
	}
	return res
}

// fanOut runs all query variations against the primary provider, falling
// back to a single secondary query when the primary yields nothing.
func (o *Orchestrator) fanOut(ctx context.Context, req model.SearchRequest, base query.Query) Result {
	var out Result

	variations := o.variations(req, base)
	breaker := o.breakers.Get(o.primary.Name())

	// Per-variation slots keep the merge order deterministic regardless of
	// which goroutine finishes first.
	slots := make([][]model.CandidateURL, len(variations))
	var succeeded atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxConcurrency)
	for i, v := range variations {
		g.Go(func() error {
			cands, err := o.searchOnce(gctx, o.primary, breaker, v)
			if err != nil {
				zap.L().Warn("search variation failed",
					zap.String("provider", o.primary.Name()),
					zap.String("query", v.Text),
					zap.Error(err),
				)
				return nil
			}
			succeeded.Store(true)
			slots[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.CandidateURL
	for _, s := range slots {
		merged = append(merged, s...)
	}
	if len(merged) > 0 {
		out.Providers = append(out.Providers, o.primary.Name())
	}

	// Breaker open or every variation failed: one non-fanned fallback query.
	if (!succeeded.Load() || breaker.Open()) && len(merged) == 0 && o.fallback != nil {
		fb := o.breakers.Get(o.fallback.Name())
		cands, err := o.searchOnce(ctx, o.fallback, fb, base)
		if err != nil {
			zap.L().Warn("fallback search failed",
				zap.String("provider", o.fallback.Name()),
				zap.Error(err),
			)
		} else if len(cands) > 0 {
			merged = cands
			out.Providers = append(out.Providers, o.fallback.Name())
		}
	}

	out.Candidates = o.capCandidates(dedupe(merged))
	return out
}

// searchOnce runs one provider call through the in-flight dedup group and
// the provider's breaker/retry guard.
func (o *Orchestrator) searchOnce(ctx context.Context, p provider.Provider, b *resilience.Breaker, q query.Query) ([]model.CandidateURL, error) {
	fp := resilience.Fingerprint(p.Name(), "search",
		strings.ToLower(q.Text), q.Country,
		q.From.Format(model.DateLayout), q.To.Format(model.DateLayout))

	val, shared, err := o.flight.Do(ctx, fp, func(ctx context.Context) (any, error) {
		return resilience.Guard(ctx, b, o.retry, func(ctx context.Context) ([]model.CandidateURL, error) {
			return p.Search(ctx, q)
		})
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("search call deduplicated in flight",
			zap.String("fingerprint", fp),
		)
	}
	return val.([]model.CandidateURL), nil
}

// variations derives the bounded query set: the base, event-type suffixed
// forms, and a country-qualified form when the country is specific.
func (o *Orchestrator) variations(req model.SearchRequest, base query.Query) []query.Query {
	seen := map[string]bool{}
	var out []query.Query
	add := func(text string) {
		text = strings.TrimSpace(text)
		k := strings.ToLower(text)
		if text == "" || seen[k] {
			return
		}
		seen[k] = true
		v := base
		v.Text = text
		out = append(out, v)
	}

	add(base.Text)
	lower := strings.ToLower(base.Text)
	for _, suffix := range eventSuffixes {
		if !strings.Contains(lower, suffix) {
			add(base.Text + " " + suffix)
		}
	}
	if name := query.CountryName(req.Country); name != "" && !strings.Contains(lower, strings.ToLower(name)) {
		add(base.Text + " " + name)
	}
	return out
}

// capCandidates enforces the hard backpressure ceiling.
func (o *Orchestrator) capCandidates(cands []model.CandidateURL) []model.CandidateURL {
	if len(cands) <= o.opts.MaxCandidates {
		return cands
	}
	dropped := len(cands) - o.opts.MaxCandidates
	zap.L().Warn("candidate ceiling reached, dropping excess",
		zap.Int("ceiling", o.opts.MaxCandidates),
		zap.Int("dropped", dropped),
	)
	return cands[:o.opts.MaxCandidates]
}

// dedupe keeps the first occurrence of each normalized URL.
func dedupe(cands []model.CandidateURL) []model.CandidateURL {
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		k := urlutil.Normalize(c.URL)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
