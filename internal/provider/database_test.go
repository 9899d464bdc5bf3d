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
)

type fakeFinder struct {
	events []model.ExtractedEvent
	err    error

	gotText    string
	gotCountry string
}

func (f *fakeFinder) FindEvents(_ context.Context, text, country string, _, _ time.Time, _ int) ([]model.ExtractedEvent, error) {
	f.gotText = text
	f.gotCountry = country
	return f.events, f.err
}

func TestDatabase_MapsEventsToCandidates(t *testing.T) {
	fake := &fakeFinder{events: []model.ExtractedEvent{
		{URL: "https://local.de/conf", Title: "Local Conf"},
		{URL: "", Title: "no url"},
	}}

	p := NewDatabase(fake, 20)
	got, err := p.Search(context.Background(), query.Query{Text: "conf", Country: "DE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SourceDatabase, got[0].Source)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.Equal(t, "conf", fake.gotText)
	assert.Equal(t, "DE", fake.gotCountry)
}

func TestDatabase_WrapsStoreError(t *testing.T) {
	fake := &fakeFinder{err: errors.New("db locked")}
	p := NewDatabase(fake, 20)

	_, err := p.Search(context.Background(), query.Query{Text: "conf"})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, model.SourceDatabase, perr.Provider)
}
