// Package prioritize scores candidate URLs with a generative model, falling
// back to deterministic heuristics when the model cannot answer.
package prioritize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/internal/urlutil"
	"github.com/sells-group/event-scout/pkg/anthropic"
)

const scoringSystemPrompt = `You score URLs for how likely each is to be the official page of a single professional event (conference, summit, workshop, expo).

Score each URL from 0.0 to 1.0. Official event pages with a specific edition score high; vendor homepages, news articles, and listing pages score low.

Respond with ONLY a JSON array, no prose:
[{"url": "...", "score": 0.0, "reason": "..."}]`

// Options tunes the prioritization engine.
type Options struct {
	Model       string
	ChunkSize   int
	Threshold   float64
	Timeout     time.Duration
	MaxRequeues int
	MinInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 6
	}
	if o.Threshold <= 0 {
		o.Threshold = 0.4
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxRequeues < 0 {
		o.MaxRequeues = 0
	}
	if o.MinInterval <= 0 {
		o.MinInterval = 500 * time.Millisecond
	}
	return o
}

// Engine runs model-backed candidate scoring. A nil client degrades every
// chunk to heuristic scoring.
type Engine struct {
	client  anthropic.Client
	limiter *rate.Limiter
	opts    Options
}

// New creates a prioritization engine. client may be nil.
func New(client anthropic.Client, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		opts:    opts,
	}
}

// chunk is one unit of scoring work. Positions index into the original
// candidate ordering so heuristic fallback keeps its positional penalty.
type chunk struct {
	cands     []model.CandidateURL
	positions []int
}

// Prioritize scores candidates in chunks and drops those below the
// threshold. It never returns an error: model failures degrade to
// heuristics, and only context cancellation cuts the work short.
func (e *Engine) Prioritize(ctx context.Context, req model.SearchRequest, cands []model.CandidateURL) []model.CandidateURL {
	if len(cands) == 0 {
		return nil
	}

	scores := make(map[string]model.CandidateURL, len(cands))
	record := func(c model.CandidateURL) {
		scores[urlutil.Normalize(c.URL)] = c
	}

	queue := e.chunks(cands)
	if e.client == nil {
		for _, ch := range queue {
			e.applyHeuristic(ch, req, record)
		}
		return e.finish(cands, scores)
	}

	for pass := 0; pass <= e.opts.MaxRequeues; pass++ {
		var requeued []chunk
		for _, ch := range queue {
			if ctx.Err() != nil {
				e.applyHeuristic(ch, req, record)
				continue
			}
			err := e.scoreChunk(ctx, req, ch, record)
			switch {
			case err == nil:
			case resilience.IsTimeout(err) && pass < e.opts.MaxRequeues:
				zap.L().Warn("scoring chunk timed out, requeueing",
					zap.Int("pass", pass),
					zap.Int("urls", len(ch.cands)),
				)
				requeued = append(requeued, ch)
			default:
				zap.L().Warn("scoring chunk failed, using heuristics",
					zap.Int("urls", len(ch.cands)),
					zap.Error(err),
				)
				e.applyHeuristic(ch, req, record)
			}
		}
		if len(requeued) == 0 {
			break
		}
		queue = requeued
	}

	return e.finish(cands, scores)
}

// scoreChunk runs one rate-limited, time-boxed model call and records the
// scores it can recover. URLs the model skipped get heuristic scores.
func (e *Engine) scoreChunk(ctx context.Context, req model.SearchRequest, ch chunk, record func(model.CandidateURL)) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.client.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     e.opts.Model,
		MaxTokens: 1024,
		System:    scoringSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: e.prompt(req, ch.cands)},
		},
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return &resilience.TimeoutError{Stage: "prioritize", Err: err}
		}
		return err
	}
	resp.Usage.LogCost(e.opts.Model, "prioritize")

	parsed, outcome := parseScores(resp.Text)
	if outcome == Failed {
		return fmt.Errorf("prioritize: unparseable scoring response (%d bytes)", len(resp.Text))
	}
	if outcome == Repaired {
		zap.L().Debug("scoring response repaired",
			zap.Int("recovered", len(parsed)),
		)
	}

	byURL := make(map[string]scoredURL, len(parsed))
	for _, s := range parsed {
		byURL[urlutil.Normalize(s.URL)] = s
	}
	for i, c := range ch.cands {
		if s, ok := byURL[urlutil.Normalize(c.URL)]; ok {
			c.Score = clamp01(s.Score)
			c.Reason = s.Reason
		} else {
			c.Score = heuristicScore(c, ch.positions[i], req.Industry, req.Country)
			c.Reason = "heuristic: missing from model response"
			c.Source = model.SourceHeuristic
		}
		record(c)
	}
	return nil
}

// applyHeuristic scores a whole chunk deterministically and retags it so
// the output discloses which candidates never saw the model.
func (e *Engine) applyHeuristic(ch chunk, req model.SearchRequest, record func(model.CandidateURL)) {
	for i, c := range ch.cands {
		c.Score = heuristicScore(c, ch.positions[i], req.Industry, req.Country)
		if c.Reason == "" {
			c.Reason = "heuristic"
		}
		c.Source = model.SourceHeuristic
		record(c)
	}
}

// finish re-assembles scored candidates in input order, applies the
// threshold, and sorts by score for downstream capping.
func (e *Engine) finish(cands []model.CandidateURL, scores map[string]model.CandidateURL) []model.CandidateURL {
	out := make([]model.CandidateURL, 0, len(cands))
	dropped := 0
	for _, c := range cands {
		scored, ok := scores[urlutil.Normalize(c.URL)]
		if !ok {
			continue
		}
		if scored.Score < e.opts.Threshold {
			dropped++
			continue
		}
		out = append(out, scored)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if dropped > 0 {
		zap.L().Info("pruned low-scoring candidates",
			zap.Int("dropped", dropped),
			zap.Float64("threshold", e.opts.Threshold),
		)
	}
	return out
}

func (e *Engine) chunks(cands []model.CandidateURL) []chunk {
	var out []chunk
	for start := 0; start < len(cands); start += e.opts.ChunkSize {
		end := start + e.opts.ChunkSize
		if end > len(cands) {
			end = len(cands)
		}
		ch := chunk{cands: make([]model.CandidateURL, end-start), positions: make([]int, end-start)}
		copy(ch.cands, cands[start:end])
		for i := range ch.positions {
			ch.positions[i] = start + i
		}
		out = append(out, ch)
	}
	return out
}

func (e *Engine) prompt(req model.SearchRequest, cands []model.CandidateURL) string {
	var sb strings.Builder
	sb.WriteString("Search intent: ")
	sb.WriteString(req.UserText)
	if req.Industry != "" {
		sb.WriteString("\nIndustry: ")
		sb.WriteString(req.Industry)
	}
	if req.Country != "" && req.Country != model.CountryAll {
		sb.WriteString("\nCountry: ")
		sb.WriteString(req.Country)
	}
	if req.HasWindow() {
		sb.WriteString("\nDate window: ")
		sb.WriteString(req.DateFrom.Format(model.DateLayout))
		sb.WriteString(" to ")
		sb.WriteString(req.DateTo.Format(model.DateLayout))
	}
	sb.WriteString("\n\nURLs:\n")
	for _, c := range cands {
		sb.WriteString(c.URL)
		sb.WriteString("\n")
	}
	return sb.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
