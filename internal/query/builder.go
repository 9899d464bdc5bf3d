package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/sells-group/event-scout/internal/model"
)

// DefaultMaxLength bounds the query string for downstream provider limits.
const DefaultMaxLength = 256

// yearToken matches a 4-digit year anywhere in the query text.
var yearToken = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Query is the deterministic output of the builder.
type Query struct {
	Text      string
	Narrative string // longer free-form variant for model prompts
	Country   string
	From, To  time.Time
}

// Builder constructs provider query strings from requests. Deterministic
// given identical inputs; performs no I/O.
type Builder struct {
	lib       *Library
	maxLength int
	nowFunc   func() time.Time
}

// NewBuilder creates a Builder over an optional template library.
func NewBuilder(lib *Library, maxLength int) *Builder {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Builder{lib: lib, maxLength: maxLength, nowFunc: time.Now}
}

// Build combines the industry template (when one exists), user text,
// geography terms, and negative filters into a single query. It never
// fails: any degenerate input falls back to the raw user text.
func (b *Builder) Build(req model.SearchRequest) Query {
	q := Query{Country: req.Country, From: req.DateFrom, To: req.DateTo}

	text := strings.TrimSpace(req.UserText)
	if text == "" {
		q.Text = req.UserText
		return q
	}

	var parts []string
	tmpl, hasTmpl := b.lib.Get(req.Industry)
	if hasTmpl {
		parts = append(parts, text)
		parts = append(parts, tmpl.TopTerms(4)...)
		if kws := tmpl.EventKeywords; len(kws) > 0 {
			parts = append(parts, kws[0])
		}
	} else {
		// Generic unified builder: event-type keywords plus the current
		// year when the user gave no year token.
		parts = append(parts, text)
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "conference") && !strings.Contains(lower, "summit") {
			parts = append(parts, "conference OR summit")
		}
		if !yearToken.MatchString(text) {
			year := b.nowFunc().Year()
			if !req.DateFrom.IsZero() {
				year = req.DateFrom.Year()
			}
			parts = append(parts, fmt.Sprintf("%d", year))
		}
	}

	if geo := CountryName(req.Country); geo != "" {
		parts = append(parts, geo)
	}

	if hasTmpl {
		for _, ex := range tmpl.Excluded {
			ex = strings.TrimSpace(ex)
			if ex != "" {
				parts = append(parts, "-"+ex)
			}
		}
	}

	q.Text = truncateAtWord(strings.Join(parts, " "), b.maxLength)
	q.Narrative = narrative(req, hasTmpl, tmpl)
	if q.Text == "" {
		q.Text = req.UserText
	}
	return q
}

// CountryName resolves an ISO-2 code to its English name. Returns "" for
// "ALL", empty input, or unknown codes.
func CountryName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == model.CountryAll {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return ""
	}
	return display.English.Regions().Name(region)
}

// narrative builds a free-form description for model prompts.
func narrative(req model.SearchRequest, hasTmpl bool, tmpl Template) string {
	var sb strings.Builder
	sb.WriteString("Looking for professional events matching: ")
	sb.WriteString(req.UserText)
	if hasTmpl {
		sb.WriteString(" in the ")
		sb.WriteString(tmpl.Industry)
		sb.WriteString(" industry")
	}
	if name := CountryName(req.Country); name != "" {
		sb.WriteString(" in ")
		sb.WriteString(name)
	}
	if req.HasWindow() {
		sb.WriteString(" between ")
		sb.WriteString(req.DateFrom.Format(model.DateLayout))
		sb.WriteString(" and ")
		sb.WriteString(req.DateTo.Format(model.DateLayout))
	}
	return sb.String()
}

// truncateAtWord cuts s to at most max runes, breaking at the last space.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
