// Package quality scores extracted events against the request and decides
// whether the pipeline needs its one-shot window expansion.
package quality

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/urlutil"
)

// Signal weights. They sum to 1.0 when the date lands in-window.
const (
	weightDateInWindow    = 0.35
	weightDateWithinMonth = 0.2
	weightLocation        = 0.25
	weightSpeakers        = 0.25
	weightCountry         = 0.15
)

// minSpeakersSignal is the speaker count the quality signal requires. The
// final-output rule (≥1 valid speaker) is separate and lives in pipeline.
const minSpeakersSignal = 2

// DefaultThreshold is the composite score a solid hit must reach.
const DefaultThreshold = 0.6

// Gate scores events and partitions them into solid hits.
type Gate struct {
	threshold float64
}

// NewGate creates a quality gate. threshold <= 0 selects the default.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gate{threshold: threshold}
}

// ScoreAndFilter assigns QualityScore and DateWindowStatus to every event
// and returns the solid hits plus all scored events. Failing events are
// logged with their missing signals, never silently dropped from allScored.
//
// A solid hit must carry a date signal: events with no parseable date or a
// date outside the expanded window never qualify, no matter how well the
// other signals score.
func (g *Gate) ScoreAndFilter(events []model.ExtractedEvent, window model.Window, country string) (solid, all []model.ExtractedEvent) {
	all = make([]model.ExtractedEvent, 0, len(events))
	for _, ev := range events {
		score, missing := g.score(&ev, window, country)
		ev.QualityScore = score
		all = append(all, ev)

		if score >= g.threshold && dateQualifies(ev.DateWindowStatus) {
			solid = append(solid, ev)
			continue
		}
		zap.L().Info("event below quality threshold",
			zap.String("url", ev.URL),
			zap.Float64("score", score),
			zap.Float64("threshold", g.threshold),
			zap.Strings("missing", missing),
		)
	}
	return solid, all
}

// score computes the composite quality score and names absent signals.
func (g *Gate) score(ev *model.ExtractedEvent, window model.Window, country string) (float64, []string) {
	var score float64
	var missing []string

	ev.DateWindowStatus = window.Status(ev.StartsAt)
	switch ev.DateWindowStatus {
	case model.StatusInWindow:
		score += weightDateInWindow
	case model.StatusWithinMonth:
		score += weightDateWithinMonth
	case model.StatusNoDate:
		missing = append(missing, "date")
	default:
		missing = append(missing, "date-in-window")
	}

	if ev.City != "" || ev.Venue != "" {
		score += weightLocation
	} else {
		missing = append(missing, "location")
	}

	if len(ev.ValidSpeakers()) >= minSpeakersSignal {
		score += weightSpeakers
	} else {
		missing = append(missing, "speakers")
	}

	if countryMatches(ev.Country, country) {
		score += weightCountry
	} else {
		missing = append(missing, "country")
	}

	return score, missing
}

// dateQualifies reports whether the date status permits solid-hit standing.
func dateQualifies(status string) bool {
	return status == model.StatusInWindow || status == model.StatusWithinMonth
}

// countryMatches treats an ALL request as matching any event country.
func countryMatches(eventCountry, requestCountry string) bool {
	rc := strings.ToUpper(strings.TrimSpace(requestCountry))
	if rc == "" || rc == model.CountryAll {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(eventCountry), rc)
}

// Rank orders events for final output: confidence descending, ties broken
// by the nearer start date. Undated events sort after dated ones on a tie.
func Rank(events []model.ExtractedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		switch {
		case a.StartsAt == nil:
			return false
		case b.StartsAt == nil:
			return true
		default:
			return a.StartsAt.Before(*b.StartsAt)
		}
	})
}

// MergeSolidHits unions expanded-run hits into the originals, keeping the
// first occurrence per normalized URL.
func MergeSolidHits(original, expanded []model.ExtractedEvent) []model.ExtractedEvent {
	seen := make(map[string]bool, len(original))
	out := make([]model.ExtractedEvent, 0, len(original)+len(expanded))
	for _, ev := range original {
		seen[urlutil.Normalize(ev.URL)] = true
		out = append(out, ev)
	}
	for _, ev := range expanded {
		k := urlutil.Normalize(ev.URL)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	return out
}
