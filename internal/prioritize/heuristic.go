package prioritize

import (
	"regexp"
	"strings"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/urlutil"
)

// Heuristic scoring constants. Used whenever the model cannot score a
// chunk; deterministic so results stay reproducible.
const (
	heuristicBase      = 0.5
	positionalPenalty  = 0.02
	industryBoost      = 0.15
	eventSlugBoost     = 0.15
	countryDomainBoost = 0.1
)

// eventSlugPattern matches dedicated event pages like /event/acme-summit or
// /conference/2026-keynotes.
var eventSlugPattern = regexp.MustCompile(`/(event|events|conference|summit|expo|congress)/[a-z0-9][a-z0-9-]*`)

// heuristicScore assigns a deterministic score to the candidate at queue
// position pos. Later positions are slightly penalized so the discovery
// ordering survives a full model outage.
func heuristicScore(c model.CandidateURL, pos int, industry, country string) float64 {
	score := heuristicBase - float64(pos)*positionalPenalty

	host := urlutil.Host(c.URL)
	path := strings.ToLower(urlutil.PathOf(c.URL))

	for _, kw := range industryKeywords(industry) {
		if strings.Contains(path, kw) || strings.Contains(host, kw) {
			score += industryBoost
			break
		}
	}
	if eventSlugPattern.MatchString(path) {
		score += eventSlugBoost
	}
	if tld := countryTLD(country); tld != "" && strings.HasSuffix(host, tld) {
		score += countryDomainBoost
	}

	return clampOpen(score)
}

// industryKeywords tokenizes the industry label for URL matching.
func industryKeywords(industry string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(industry)) {
		if len(tok) >= 3 {
			out = append(out, tok)
		}
	}
	return out
}

// countryTLD maps an ISO-2 code to its ccTLD suffix; "" for ALL or empty.
func countryTLD(country string) string {
	c := strings.ToLower(strings.TrimSpace(country))
	if c == "" || c == strings.ToLower(model.CountryAll) {
		return ""
	}
	if c == "gb" {
		c = "uk"
	}
	return "." + c
}

// clampOpen keeps scores strictly inside (0, 1) so a heuristic result is
// never mistaken for a hard model verdict at either extreme.
func clampOpen(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}
