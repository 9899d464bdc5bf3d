package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/query"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/pkg/firecrawl"
)

type fakeFirecrawl struct {
	lastSearch firecrawl.SearchRequest
	searchResp *firecrawl.SearchResponse
	searchErr  error
}

func (f *fakeFirecrawl) Search(_ context.Context, req firecrawl.SearchRequest) (*firecrawl.SearchResponse, error) {
	f.lastSearch = req
	return f.searchResp, f.searchErr
}

func (f *fakeFirecrawl) Scrape(_ context.Context, _ firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	return nil, errors.New("not used")
}

func TestFirecrawl_MapsResultsToCandidates(t *testing.T) {
	fake := &fakeFirecrawl{searchResp: &firecrawl.SearchResponse{
		Success: true,
		Data: []firecrawl.SearchResult{
			{URL: "https://aisummit.de/2025", Title: "AI Summit"},
			{URL: "", Title: "broken"},
			{URL: "https://devconf.eu", Title: "DevConf"},
		},
	}}

	p := NewFirecrawl(fake, 10)
	got, err := p.Search(context.Background(), query.Query{Text: "ai conference", Country: "DE"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.SourceFirecrawl, got[0].Source)
	assert.Equal(t, "AI Summit", got[0].Reason)
	assert.InDelta(t, 0.5, got[0].Score, 1e-9)
}

func TestFirecrawl_SetsLocationAndDateOperators(t *testing.T) {
	fake := &fakeFirecrawl{searchResp: &firecrawl.SearchResponse{Success: true}}
	p := NewFirecrawl(fake, 5)

	_, err := p.Search(context.Background(), query.Query{
		Text:    "compliance conference",
		Country: "DE",
		From:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Germany", fake.lastSearch.Location)
	assert.Equal(t, "cdr:1,cd_min:3/1/2025,cd_max:3/31/2025", fake.lastSearch.TBS)
	assert.Equal(t, 5, fake.lastSearch.Limit)
}

func TestFirecrawl_RetryableStatusBecomesTransient(t *testing.T) {
	fake := &fakeFirecrawl{searchErr: &firecrawl.APIError{StatusCode: 503, Body: "down"}}
	p := NewFirecrawl(fake, 10)

	_, err := p.Search(context.Background(), query.Query{Text: "x"})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, model.SourceFirecrawl, perr.Provider)
	assert.True(t, resilience.IsTransient(err))
}

func TestFirecrawl_ClientErrorStaysPermanent(t *testing.T) {
	fake := &fakeFirecrawl{searchErr: &firecrawl.APIError{StatusCode: 401, Body: "bad key"}}
	p := NewFirecrawl(fake, 10)

	_, err := p.Search(context.Background(), query.Query{Text: "x"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
