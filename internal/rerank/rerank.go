// Package rerank filters aggregator noise out of discovered candidates and
// applies deterministic score adjustments before prioritization.
package rerank

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/urlutil"
)

// Score adjustments. Applied after filtering, clamped to [0, 1].
const (
	countryTLDBonus = 0.15
	eventPathBonus  = 0.1
)

// aggregatorHosts lists hostname fragments for listing pages, job boards,
// social networks, and documentation sites that never carry a primary event
// page worth extracting.
var aggregatorHosts = []string{
	"eventbrite.",
	"meetup.com",
	"10times.com",
	"allevents.in",
	"eventful.com",
	"linkedin.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"youtube.com",
	"reddit.com",
	"medium.com",
	"wikipedia.org",
	"indeed.",
	"glassdoor.",
	"lever.co",
	"greenhouse.io",
	"readthedocs.io",
	"stackoverflow.com",
}

// aggregatorPathKeywords flags listing-style paths on otherwise acceptable
// hosts.
var aggregatorPathKeywords = []string{
	"/jobs",
	"/careers",
	"/job-board",
	"/docs/",
	"/documentation/",
	"/event-calendar",
	"/events-list",
}

// eventPathSegments mark URLs that look like a dedicated event page.
var eventPathSegments = []string{
	"/event/",
	"/events/",
	"/conference/",
	"/summit/",
	"/expo/",
	"/symposium/",
	"/congress/",
}

// SeenSet records aggregator hosts already logged during one pipeline run,
// so each host is reported once rather than once per URL.
type SeenSet struct {
	mu    sync.Mutex
	hosts map[string]bool
}

// NewSeenSet creates an empty run-scoped set.
func NewSeenSet() *SeenSet {
	return &SeenSet{hosts: make(map[string]bool)}
}

// FirstTime reports whether host has not been recorded yet, recording it.
func (s *SeenSet) FirstTime(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hosts[host] {
		return false
	}
	s.hosts[host] = true
	return true
}

// Scorer is an optional model-backed rescoring hook. A failure never aborts
// the pipeline; the input passes through unchanged.
type Scorer interface {
	Score(ctx context.Context, cands []model.CandidateURL) ([]model.CandidateURL, error)
}

// Reranker filters and rescores candidates. Pure aside from the optional
// Scorer call.
type Reranker struct {
	scorer Scorer // may be nil
}

// New creates a Reranker. scorer may be nil to skip model rescoring.
func New(scorer Scorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank drops aggregator URLs, applies deterministic bonuses, and runs the
// optional scorer. seen carries per-run log-once state; country is the
// request's ISO-2 code or ALL.
func (r *Reranker) Rerank(ctx context.Context, cands []model.CandidateURL, country string, seen *SeenSet) []model.CandidateURL {
	out := make([]model.CandidateURL, 0, len(cands))
	for _, c := range cands {
		host := urlutil.Host(c.URL)
		path := strings.ToLower(urlutil.PathOf(c.URL))
		if host == "" {
			continue
		}
		if isAggregator(host, path) {
			if seen != nil && seen.FirstTime(host) {
				zap.L().Info("dropping aggregator host",
					zap.String("host", host),
				)
			}
			continue
		}
		c.Score = clamp(c.Score + bonus(host, path, country))
		out = append(out, c)
	}

	if r.scorer != nil && len(out) > 0 {
		scored, err := r.scorer.Score(ctx, out)
		if err != nil {
			zap.L().Warn("rescoring failed, passing candidates through",
				zap.Error(err),
			)
			return out
		}
		return scored
	}
	return out
}

func isAggregator(host, path string) bool {
	for _, frag := range aggregatorHosts {
		if strings.Contains(host, frag) {
			return true
		}
	}
	for _, kw := range aggregatorPathKeywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// bonus computes the deterministic score adjustment for a candidate.
func bonus(host, path, country string) float64 {
	var b float64
	if tld := countryTLD(country); tld != "" && strings.HasSuffix(host, tld) {
		b += countryTLDBonus
	}
	for _, seg := range eventPathSegments {
		if strings.Contains(path, seg) {
			b += eventPathBonus
			break
		}
	}
	return b
}

// countryTLD maps an ISO-2 code to its ccTLD suffix; "" for ALL or empty.
func countryTLD(country string) string {
	c := strings.ToLower(strings.TrimSpace(country))
	if c == "" || strings.EqualFold(country, model.CountryAll) {
		return ""
	}
	// ccTLDs match the ISO-2 code except for a few legacy exceptions.
	if c == "gb" {
		c = "uk"
	}
	return "." + c
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
