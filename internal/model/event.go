package model

import "time"

// DateWindowStatus values assigned by the quality gate.
const (
	StatusInWindow    = "in-window"
	StatusWithinMonth = "within-month"
	StatusOutOfWindow = "out-of-window"
	StatusNoDate      = "no-date"
)

// WithinMonthSlack is how far past the window end a date still counts as a
// softer "within-month" pass.
const WithinMonthSlack = 30 * 24 * time.Hour

// Speaker is a person listed on an event page. Entries with an empty name
// are invalid and dropped before output.
type Speaker struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// Valid reports whether the speaker entry may appear in output.
func (s Speaker) Valid() bool {
	return s.Name != ""
}

// ExtractedEvent is the pipeline's output record for one event page.
// Immutable after extraction except QualityScore and DateWindowStatus,
// which the quality gate assigns.
type ExtractedEvent struct {
	URL              string     `json:"url"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	StartsAt         *time.Time `json:"startsAt,omitempty"`
	City             string     `json:"city,omitempty"`
	Country          string     `json:"country,omitempty"`
	Venue            string     `json:"venue,omitempty"`
	Speakers         []Speaker  `json:"speakers"`
	Sponsors         []string   `json:"sponsors,omitempty"`
	Confidence       float64    `json:"confidence"`
	Source           string     `json:"source"`
	QualityScore     float64    `json:"qualityScore"`
	DateWindowStatus string     `json:"dateWindowStatus,omitempty"`
}

// ValidSpeakers returns the speakers that may appear in output.
func (e ExtractedEvent) ValidSpeakers() []Speaker {
	out := make([]Speaker, 0, len(e.Speakers))
	for _, s := range e.Speakers {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// Window bounds acceptable event start dates.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Status classifies a start date against the window. A nil date is
// "no-date"; dates inside [From, To] are "in-window"; dates up to
// WithinMonthSlack past To are "within-month"; everything else is
// "out-of-window".
func (w Window) Status(startsAt *time.Time) string {
	if startsAt == nil {
		return StatusNoDate
	}
	t := *startsAt
	if w.From.IsZero() && w.To.IsZero() {
		return StatusInWindow
	}
	if !t.Before(w.From) && !t.After(w.To) {
		return StatusInWindow
	}
	if t.After(w.To) && !t.After(w.To.Add(WithinMonthSlack)) {
		return StatusWithinMonth
	}
	return StatusOutOfWindow
}
