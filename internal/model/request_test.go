package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_Valid(t *testing.T) {
	req, err := ParseRequest("compliance conference", "de", "2025-03-01", "2025-03-31", "fintech")
	require.NoError(t, err)
	assert.Equal(t, "DE", req.Country)
	assert.Equal(t, "fintech", req.Industry)
	assert.True(t, req.HasWindow())
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), req.DateFrom)
}

func TestParseRequest_DefaultsCountryToAll(t *testing.T) {
	req, err := ParseRequest("ai summit", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, CountryAll, req.Country)
	assert.False(t, req.HasWindow())
}

func TestValidate_RejectsInvertedWindow(t *testing.T) {
	_, err := ParseRequest("x", "DE", "2025-04-01", "2025-03-01", "")
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "dateFrom", verr.Field)
}

func TestValidate_RejectsEmptyText(t *testing.T) {
	_, err := ParseRequest("   ", "DE", "", "", "")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "userText", verr.Field)
}

func TestValidate_RejectsBadCountry(t *testing.T) {
	_, err := ParseRequest("conf", "DEU", "", "", "")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "country", verr.Field)
}

func TestWithDateTo_DoesNotMutateOriginal(t *testing.T) {
	req, err := ParseRequest("conf", "DE", "2025-03-01", "2025-03-31", "")
	require.NoError(t, err)
	expanded := req.WithDateTo(req.DateTo.AddDate(0, 0, 30))
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), req.DateTo)
	assert.Equal(t, time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), expanded.DateTo)
}

func TestWindowStatus(t *testing.T) {
	w := Window{
		From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	inside := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	dayAfter := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	farOut := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, StatusInWindow, w.Status(&inside))
	assert.Equal(t, StatusWithinMonth, w.Status(&dayAfter))
	assert.Equal(t, StatusOutOfWindow, w.Status(&farOut))
	assert.Equal(t, StatusOutOfWindow, w.Status(&before))
	assert.Equal(t, StatusNoDate, w.Status(nil))
}

func TestValidSpeakers_DropsEmptyNames(t *testing.T) {
	ev := ExtractedEvent{Speakers: []Speaker{
		{Name: "Ada Lovelace", Title: "Keynote"},
		{Name: "", Title: "Panelist"},
		{Name: "Grace Hopper"},
	}}
	got := ev.ValidSpeakers()
	require.Len(t, got, 2)
	assert.Equal(t, "Ada Lovelace", got[0].Name)
}
