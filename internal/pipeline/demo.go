package pipeline

import (
	"time"

	"github.com/sells-group/event-scout/internal/model"
)

// demoEvents returns placeholder events for the degraded mode where no
// provider is usable. They are tagged with the demo source so callers can
// never mistake them for real data.
func demoEvents(req model.SearchRequest) []model.ExtractedEvent {
	anchor := time.Now().UTC().Truncate(24 * time.Hour)
	if !req.DateFrom.IsZero() {
		anchor = req.DateFrom
	}
	first := anchor.AddDate(0, 0, 14)
	second := anchor.AddDate(0, 0, 30)
	third := anchor.AddDate(0, 0, 45)

	return []model.ExtractedEvent{
		{
			URL:         "https://demo.event-scout.invalid/summit",
			Title:       "[DEMO] Industry Summit",
			Description: "Placeholder event shown because no search provider was available.",
			StartsAt:    &first,
			City:        "Berlin",
			Country:     "DE",
			Venue:       "Demo Convention Center",
			Speakers: []model.Speaker{
				{Name: "Demo Speaker One", Title: "CEO", Company: "Example Corp"},
				{Name: "Demo Speaker Two", Title: "CTO", Company: "Sample GmbH"},
			},
			Confidence: 0.1,
			Source:     model.SourceDemo,
		},
		{
			URL:         "https://demo.event-scout.invalid/conference",
			Title:       "[DEMO] Annual Conference",
			Description: "Placeholder event shown because no search provider was available.",
			StartsAt:    &second,
			City:        "Amsterdam",
			Country:     "NL",
			Venue:       "Demo Expo Hall",
			Speakers: []model.Speaker{
				{Name: "Demo Speaker Three", Title: "VP Engineering", Company: "Placeholder BV"},
			},
			Confidence: 0.1,
			Source:     model.SourceDemo,
		},
		{
			URL:         "https://demo.event-scout.invalid/workshop",
			Title:       "[DEMO] Hands-On Workshop",
			Description: "Placeholder event shown because no search provider was available.",
			StartsAt:    &third,
			City:        "London",
			Country:     "GB",
			Venue:       "Demo Training Space",
			Speakers: []model.Speaker{
				{Name: "Demo Speaker Four", Title: "Principal Engineer", Company: "Mock Ltd"},
			},
			Confidence: 0.1,
			Source:     model.SourceDemo,
		},
	}
}
