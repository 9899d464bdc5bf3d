package prioritize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoresStrict(t *testing.T) {
	got, outcome := parseScores(`[{"url":"https://a.example","score":0.9,"reason":"official page"}]`)
	assert.Equal(t, Parsed, outcome)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.example", got[0].URL)
	assert.Equal(t, 0.9, got[0].Score)
}

func TestParseScoresWrappedInProse(t *testing.T) {
	text := "Here are the scores:\n```json\n[{\"url\":\"https://a.example\",\"score\":0.7,\"reason\":\"ok\"}]\n```\nDone."
	got, outcome := parseScores(text)
	assert.Equal(t, Parsed, outcome)
	require.Len(t, got, 1)
}

func TestParseScoresTrailingComma(t *testing.T) {
	got, outcome := parseScores(`[{"url":"https://a.example","score":0.7,"reason":"ok"},]`)
	assert.Equal(t, Repaired, outcome)
	require.Len(t, got, 1)
}

func TestParseScoresTruncated(t *testing.T) {
	// Output cut off mid-object by a token limit.
	text := `[{"url":"https://a.example","score":0.8,"reason":"ok"},{"url":"https://b.exam`
	got, outcome := parseScores(text)
	assert.Equal(t, Repaired, outcome)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.example", got[0].URL)
}

func TestParseScoresSalvage(t *testing.T) {
	text := `{"url":"https://a.example","score":0.8,"reason":"ok"} garbage {"url":"https://b.example","score":0.6,"reason":"ok"}`
	got, outcome := parseScores(text)
	assert.Equal(t, Repaired, outcome)
	assert.Len(t, got, 2)
}

func TestParseScoresFailure(t *testing.T) {
	got, outcome := parseScores("I cannot score these URLs.")
	assert.Equal(t, Failed, outcome)
	assert.Empty(t, got)
}
