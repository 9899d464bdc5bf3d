package model

// Metadata summarizes one pipeline invocation for the caller.
type Metadata struct {
	TotalCandidates       int            `json:"totalCandidates"`
	PrioritizedCandidates int            `json:"prioritizedCandidates"`
	ExtractedCandidates   int            `json:"extractedCandidates"`
	TotalDurationMs       int64          `json:"totalDurationMs"`
	AverageConfidence     float64        `json:"averageConfidence"`
	SourceBreakdown       map[string]int `json:"sourceBreakdown"`
	ProvidersUsed         []string       `json:"providersUsed"`
	Cached                bool           `json:"cached"`
	Expanded              bool           `json:"expanded"`
	Partial               bool           `json:"partial"`
}

// PipelineResult is the boundary-facing output contract.
type PipelineResult struct {
	Events   []ExtractedEvent `json:"events"`
	Metadata Metadata         `json:"metadata"`
}
