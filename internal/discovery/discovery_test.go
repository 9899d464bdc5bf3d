package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/provider"
	"github.com/sells-group/event-scout/internal/query"
	"github.com/sells-group/event-scout/internal/resilience"
)

type fakeProvider struct {
	name string
	fn   func(q query.Query) ([]model.CandidateURL, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, q query.Query) ([]model.CandidateURL, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Text)
	f.mu.Unlock()
	return f.fn(q)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func candidates(source string, urls ...string) []model.CandidateURL {
	out := make([]model.CandidateURL, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.CandidateURL{URL: u, Score: 0.5, Source: source})
	}
	return out
}

func fastRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

func newOrchestrator(primary, fallback, database *fakeProvider, opts Options) *Orchestrator {
	builder := query.NewBuilder(nil, 0)
	var fb, db provider.Provider
	if fallback != nil {
		fb = fallback
	}
	if database != nil {
		db = database
	}
	return New(primary, fb, db, builder, resilience.NewBreakerSet(0), fastRetry(), opts)
}

func testRequest() model.SearchRequest {
	return model.SearchRequest{
		UserText: "fintech conference",
		Country:  "DE",
		DateFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestDiscoverMergesAndDedupes(t *testing.T) {
	primary := &fakeProvider{name: "firecrawl", fn: func(q query.Query) ([]model.CandidateURL, error) {
		// Every variation returns the same page plus a per-variation one.
		return candidates("firecrawl", "https://SAME.example/conf/", "https://other.example/"+fmt.Sprint(len(q.Text))), nil
	}}
	o := newOrchestrator(primary, nil, nil, Options{})

	res := o.Discover(context.Background(), testRequest())
	require.NotEmpty(t, res.Candidates)
	assert.False(t, res.Cached)
	assert.Equal(t, []string{"firecrawl"}, res.Providers)

	seen := map[string]int{}
	for _, c := range res.Candidates {
		seen[c.URL]++
	}
	assert.Equal(t, 1, seen["https://SAME.example/conf/"], "normalized dupes collapse to first occurrence")
}

func TestDiscoverEnforcesCeiling(t *testing.T) {
	var n int
	var mu sync.Mutex
	primary := &fakeProvider{name: "firecrawl", fn: func(q query.Query) ([]model.CandidateURL, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]model.CandidateURL, 0, 20)
		for i := 0; i < 20; i++ {
			n++
			out = append(out, model.CandidateURL{URL: fmt.Sprintf("https://e%d.example/", n), Score: 0.5, Source: "firecrawl"})
		}
		return out, nil
	}}
	o := newOrchestrator(primary, nil, nil, Options{MaxCandidates: 50})

	res := o.Discover(context.Background(), testRequest())
	assert.Len(t, res.Candidates, 50)
}

func TestDiscoverDatabaseShortCircuit(t *testing.T) {
	primary := &fakeProvider{name: "firecrawl", fn: func(query.Query) ([]model.CandidateURL, error) {
		return candidates("firecrawl", "https://remote.example/"), nil
	}}
	db := &fakeProvider{name: "database", fn: func(query.Query) ([]model.CandidateURL, error) {
		return candidates("database", "https://local.example/event"), nil
	}}
	o := newOrchestrator(primary, nil, db, Options{})

	res := o.Discover(context.Background(), testRequest())
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "https://local.example/event", res.Candidates[0].URL)
	assert.Equal(t, []string{"database"}, res.Providers)
	assert.Zero(t, primary.callCount(), "external search skipped on local hit")
}

func TestDiscoverFallbackWhenPrimaryFails(t *testing.T) {
	primary := &fakeProvider{name: "firecrawl", fn: func(query.Query) ([]model.CandidateURL, error) {
		return nil, errors.New("boom")
	}}
	fallback := &fakeProvider{name: "cse", fn: func(query.Query) ([]model.CandidateURL, error) {
		return candidates("cse", "https://fallback.example/summit"), nil
	}}
	o := newOrchestrator(primary, fallback, nil, Options{})

	res := o.Discover(context.Background(), testRequest())
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, []string{"cse"}, res.Providers)
	assert.Equal(t, 1, fallback.callCount(), "fallback is a single non-fanned query")
}

func TestDiscoverNoFallbackWhenPrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "firecrawl", fn: func(query.Query) ([]model.CandidateURL, error) {
		return candidates("firecrawl", "https://hit.example/"), nil
	}}
	fallback := &fakeProvider{name: "cse", fn: func(query.Query) ([]model.CandidateURL, error) {
		return candidates("cse", "https://nope.example/"), nil
	}}
	o := newOrchestrator(primary, fallback, nil, Options{})

	_ = o.Discover(context.Background(), testRequest())
	assert.Zero(t, fallback.callCount())
}

func TestDiscoverCacheHit(t *testing.T) {
	primary := &fakeProvider{name: "firecrawl", fn: func(query.Query) ([]model.CandidateURL, error) {
		return candidates("firecrawl", "https://hit.example/"), nil
	}}
	o := newOrchestrator(primary, nil, nil, Options{CacheTTL: time.Minute})

	first := o.Discover(context.Background(), testRequest())
	require.False(t, first.Cached)
	callsAfterFirst := primary.callCount()

	second := o.Discover(context.Background(), testRequest())
	assert.True(t, second.Cached)
	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, callsAfterFirst, primary.callCount(), "cache hit makes no provider calls")
}

func TestVariations(t *testing.T) {
	o := newOrchestrator(&fakeProvider{name: "firecrawl"}, nil, nil, Options{})

	req := model.SearchRequest{UserText: "devops meetup", Country: "DE"}
	base := query.Query{Text: "devops meetup", Country: "DE"}
	vars := o.variations(req, base)

	var texts []string
	for _, v := range vars {
		texts = append(texts, v.Text)
	}
	assert.Contains(t, texts, "devops meetup")
	assert.Contains(t, texts, "devops meetup conference")
	assert.Contains(t, texts, "devops meetup summit")
	assert.Contains(t, texts, "devops meetup workshop")
	assert.Contains(t, texts, "devops meetup Germany")

	// Suffixes already present are not duplicated.
	base2 := query.Query{Text: "fintech summit"}
	vars2 := o.variations(model.SearchRequest{UserText: "fintech summit", Country: model.CountryAll}, base2)
	for _, v := range vars2 {
		assert.NotEqual(t, "fintech summit summit", v.Text)
	}
}
