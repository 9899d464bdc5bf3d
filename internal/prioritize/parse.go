package prioritize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseOutcome tags how a model response was recovered into scores.
type ParseOutcome int

const (
	// Parsed means strict or extracted JSON decoded cleanly.
	Parsed ParseOutcome = iota
	// Repaired means the response needed a repair or salvage pass.
	Repaired
	// Failed means no scores could be recovered.
	Failed
)

func (o ParseOutcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Repaired:
		return "repaired"
	default:
		return "failed"
	}
}

// scoredURL is one element of the model's JSON array response.
type scoredURL struct {
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

var (
	arrayPattern   = regexp.MustCompile(`(?s)\[.*\]`)
	trailingComma  = regexp.MustCompile(`,\s*([\]}])`)
	objectPattern  = regexp.MustCompile(`(?s)\{[^{}]*\}`)
	truncatedArray = regexp.MustCompile(`(?s)\[.*`)
)

// parseScores recovers scored URLs from a model response, tolerating the
// malformed JSON that generative scoring routinely produces. The ladder:
// strict parse, regex array extraction, repair pass, per-object salvage.
func parseScores(text string) ([]scoredURL, ParseOutcome) {
	text = strings.TrimSpace(text)

	// Strict parse of the whole response.
	var out []scoredURL
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, Parsed
	}

	// The model often wraps the array in prose or a code fence.
	if m := arrayPattern.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &out); err == nil {
			return out, Parsed
		}
		if repaired, ok := repairJSON(m); ok {
			return repaired, Repaired
		}
	}

	// Truncated output: take everything from the opening bracket and repair.
	if m := truncatedArray.FindString(text); m != "" {
		if repaired, ok := repairJSON(m); ok {
			return repaired, Repaired
		}
	}

	// Last resort: salvage whatever complete objects exist.
	if salvaged := salvageObjects(text); len(salvaged) > 0 {
		return salvaged, Repaired
	}

	return nil, Failed
}

// repairJSON fixes trailing commas and unbalanced closers, then re-parses.
func repairJSON(s string) ([]scoredURL, bool) {
	s = trailingComma.ReplaceAllString(s, "$1")

	// Drop a trailing partial object, then close what is still open.
	if idx := strings.LastIndex(s, "}"); idx >= 0 && idx < len(s)-1 {
		tail := s[idx+1:]
		if strings.Count(tail, "{") > strings.Count(tail, "}") {
			s = s[:idx+1]
		}
	}
	s = strings.TrimRight(s, ", \n\t")
	if opens, closes := strings.Count(s, "{"), strings.Count(s, "}"); opens > closes {
		s += strings.Repeat("}", opens-closes)
	}
	if opens, closes := strings.Count(s, "["), strings.Count(s, "]"); opens > closes {
		s += strings.Repeat("]", opens-closes)
	}

	var out []scoredURL
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

// salvageObjects decodes each balanced top-level object independently,
// keeping those that carry a URL.
func salvageObjects(s string) []scoredURL {
	var out []scoredURL
	for _, m := range objectPattern.FindAllString(s, -1) {
		var one scoredURL
		if err := json.Unmarshal([]byte(m), &one); err != nil {
			continue
		}
		if one.URL != "" {
			out = append(out, one)
		}
	}
	return out
}
