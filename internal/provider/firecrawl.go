package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/query"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/pkg/firecrawl"
)

// firecrawlBaseScore is the neutral score attached to raw search hits;
// rerank and prioritization refine it.
const firecrawlBaseScore = 0.5

// Firecrawl adapts the Firecrawl search API as the primary provider.
type Firecrawl struct {
	client firecrawl.Client
	limit  int
}

// NewFirecrawl creates the primary search adapter. limit caps results per
// query (provider default when <= 0).
func NewFirecrawl(client firecrawl.Client, limit int) *Firecrawl {
	if limit <= 0 {
		limit = 10
	}
	return &Firecrawl{client: client, limit: limit}
}

func (f *Firecrawl) Name() string { return model.SourceFirecrawl }

func (f *Firecrawl) Search(ctx context.Context, q query.Query) ([]model.CandidateURL, error) {
	req := firecrawl.SearchRequest{
		Query: q.Text,
		Limit: f.limit,
	}
	if name := query.CountryName(q.Country); name != "" {
		req.Location = name
	}
	if !q.From.IsZero() && !q.To.IsZero() {
		// Custom date range operator understood by the search backend.
		req.TBS = fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s",
			q.From.Format("1/2/2006"), q.To.Format("1/2/2006"))
	}

	resp, err := f.client.Search(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: f.Name(), Cause: classify(err)}
	}

	out := make([]model.CandidateURL, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.URL == "" {
			continue
		}
		out = append(out, model.CandidateURL{
			URL:    r.URL,
			Score:  firecrawlBaseScore,
			Reason: r.Title,
			Source: model.SourceFirecrawl,
		})
	}
	return out, nil
}

// classify marks retryable HTTP failures as transient so the shared
// retry/breaker utility treats them correctly.
func classify(err error) error {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) && resilience.RetryableStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
