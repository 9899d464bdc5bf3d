package prioritize

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/pkg/anthropic"
)

type fakeModel struct {
	fn func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeModel) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return &anthropic.MessageResponse{Text: "[]"}, nil
	}
	return f.fn(req)
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// blockingModel waits out the caller's deadline, simulating a slow provider.
type blockingModel struct {
	mu    sync.Mutex
	calls int
}

func (b *blockingModel) CreateMessage(ctx context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func fastOptions() Options {
	return Options{
		Model:       "test-model",
		ChunkSize:   6,
		Threshold:   0.4,
		Timeout:     50 * time.Millisecond,
		MaxRequeues: 2,
		MinInterval: time.Millisecond,
	}
}

func urls(n int) []model.CandidateURL {
	out := make([]model.CandidateURL, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.CandidateURL{
			URL:    fmt.Sprintf("https://conf%d.example/event/edition", i),
			Score:  0.5,
			Source: "firecrawl",
		})
	}
	return out
}

func req() model.SearchRequest {
	return model.SearchRequest{UserText: "fintech conference", Country: "DE"}
}

func scoreJSON(cands []model.CandidateURL, score float64) string {
	s := "["
	for i, c := range cands {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"url":%q,"score":%g,"reason":"model"}`, c.URL, score)
	}
	return s + "]"
}

func TestPrioritizeChunksCalls(t *testing.T) {
	m := &fakeModel{fn: func(mr anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return &anthropic.MessageResponse{Text: "[]"}, nil
	}}
	e := New(m, fastOptions())

	_ = e.Prioritize(context.Background(), req(), urls(13))
	assert.Equal(t, 3, m.callCount(), "13 urls in chunks of 6")
}

func TestPrioritizeModelScoresApplied(t *testing.T) {
	cands := urls(2)
	m := &fakeModel{fn: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return &anthropic.MessageResponse{Text: scoreJSON(cands, 0.85)}, nil
	}}
	e := New(m, fastOptions())

	out := e.Prioritize(context.Background(), req(), cands)
	require.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, 0.85, c.Score)
		assert.Equal(t, "model", c.Reason)
	}
}

func TestPrioritizeThresholdPrunes(t *testing.T) {
	cands := urls(2)
	m := &fakeModel{fn: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return &anthropic.MessageResponse{Text: fmt.Sprintf(
			`[{"url":%q,"score":0.9,"reason":"good"},{"url":%q,"score":0.1,"reason":"vendor page"}]`,
			cands[0].URL, cands[1].URL)}, nil
	}}
	e := New(m, fastOptions())

	out := e.Prioritize(context.Background(), req(), cands)
	require.Len(t, out, 1)
	assert.Equal(t, cands[0].URL, out[0].URL)
}

func TestPrioritizeTimeoutRequeues(t *testing.T) {
	m := &blockingModel{}
	e := New(m, fastOptions())

	out := e.Prioritize(context.Background(), req(), urls(3))

	m.mu.Lock()
	calls := m.calls
	m.mu.Unlock()
	assert.Equal(t, 3, calls, "initial pass plus two requeue passes")
	assert.NotEmpty(t, out, "heuristic fallback still scores the chunk")
	for _, c := range out {
		assert.Contains(t, c.Reason, "heuristic")
	}
}

func TestPrioritizeMalformedFallsBackImmediately(t *testing.T) {
	m := &fakeModel{fn: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return &anthropic.MessageResponse{Text: "I refuse to answer."}, nil
	}}
	e := New(m, fastOptions())

	out := e.Prioritize(context.Background(), req(), urls(3))
	assert.Equal(t, 1, m.callCount(), "non-timeout failure does not requeue")
	assert.NotEmpty(t, out)
}

func TestPrioritizeNilClientUsesHeuristics(t *testing.T) {
	e := New(nil, fastOptions())

	out := e.Prioritize(context.Background(), req(), urls(4))
	assert.NotEmpty(t, out)
	for _, c := range out {
		assert.Greater(t, c.Score, 0.0)
		assert.Less(t, c.Score, 1.0)
		assert.Equal(t, model.SourceHeuristic, c.Source, "heuristically scored candidates are retagged")
	}
}

func TestPrioritizeMissingURLGetsHeuristic(t *testing.T) {
	cands := urls(2)
	m := &fakeModel{fn: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		// Model only scored the first URL.
		return &anthropic.MessageResponse{Text: scoreJSON(cands[:1], 0.9)}, nil
	}}
	e := New(m, fastOptions())

	out := e.Prioritize(context.Background(), req(), cands)
	require.Len(t, out, 2)
	byURL := map[string]model.CandidateURL{}
	for _, c := range out {
		byURL[c.URL] = c
	}
	assert.Equal(t, "model", byURL[cands[0].URL].Reason)
	assert.Equal(t, "firecrawl", byURL[cands[0].URL].Source, "model-scored candidates keep their provider")
	assert.Contains(t, byURL[cands[1].URL].Reason, "heuristic")
	assert.Equal(t, model.SourceHeuristic, byURL[cands[1].URL].Source)
}

func TestHeuristicScore(t *testing.T) {
	de := model.CandidateURL{URL: "https://fintechkongress.de/event/berlin-2026"}
	plain := model.CandidateURL{URL: "https://acme.example/about"}

	hi := heuristicScore(de, 0, "fintech", "DE")
	lo := heuristicScore(plain, 0, "fintech", "DE")
	assert.Greater(t, hi, lo)

	// Positional penalty: later queue positions score lower.
	assert.Greater(t, heuristicScore(plain, 0, "", ""), heuristicScore(plain, 10, "", ""))

	// Clamped strictly inside (0, 1).
	assert.Greater(t, heuristicScore(plain, 40, "", ""), 0.0)
	assert.Less(t, heuristicScore(de, 0, "fintech", "DE"), 1.0)
}
