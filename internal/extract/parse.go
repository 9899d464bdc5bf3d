package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/event-scout/internal/model"
)

const metadataSystemPrompt = `You extract structured metadata about a professional event from a scraped web page.

Respond with ONLY a JSON object, no prose:
{"title": "...", "description": "...", "startsAt": "YYYY-MM-DD or empty", "city": "...", "country": "ISO-2 code or empty", "venue": "...", "confidence": 0.0}

confidence is your 0-1 estimate that this page describes one specific upcoming professional event. Use empty strings for fields the page does not state.`

const speakersSystemPrompt = `You extract the list of speakers from a scraped event page.

Respond with ONLY a JSON array, no prose:
[{"name": "...", "title": "...", "company": "..."}]

Include only people presented as speakers, panelists, or keynotes. Respond with [] when the page lists none.`

// eventMetadata is the model's metadata response shape.
type eventMetadata struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartsAt    string  `json:"startsAt"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Venue       string  `json:"venue"`
	Confidence  float64 `json:"confidence"`
}

var (
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
	jsonArray  = regexp.MustCompile(`(?s)\[.*\]`)
)

// parseMetadata decodes the metadata object, tolerating surrounding prose.
func parseMetadata(text string) (eventMetadata, bool) {
	var meta eventMetadata
	text = strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(text), &meta); err == nil {
		return meta, true
	}
	if m := jsonObject.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &meta); err == nil {
			return meta, true
		}
	}
	return eventMetadata{}, false
}

// parseSpeakers decodes the speaker array, tolerating surrounding prose.
// Any failure yields nil; the caller treats that as "no speakers found".
func parseSpeakers(text string) []model.Speaker {
	var speakers []model.Speaker
	text = strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(text), &speakers); err == nil {
		return speakers
	}
	if m := jsonArray.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &speakers); err == nil {
			return speakers
		}
	}
	return nil
}

// eventDateLayouts are accepted startsAt formats, most specific first.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	model.DateLayout,
	"January 2, 2006",
	"2 January 2006",
}

// parseEventDate parses the model's startsAt string.
func parseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
