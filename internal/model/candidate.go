package model

// Candidate source identifiers.
const (
	SourceFirecrawl = "firecrawl"
	SourceCSE       = "cse"
	SourceDatabase  = "database"
	SourceHeuristic = "fallback-heuristic"
	SourceDemo      = "demo"
)

// CandidateURL is a discovered page that may describe an event. Two
// candidates are the same iff their normalized URLs match; that key drives
// deduplication through every stage.
type CandidateURL struct {
	URL    string  `json:"url"`
	Score  float64 `json:"score"` // 0..1
	Reason string  `json:"reason,omitempty"`
	Source string  `json:"source"`
}
