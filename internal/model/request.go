// Package model defines the core data types shared across the event
// discovery pipeline.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for request dates.
const DateLayout = "2006-01-02"

// CountryAll disables geography filtering.
const CountryAll = "ALL"

// SearchRequest is the immutable per-invocation input to the pipeline.
// Expansion never mutates a request; it derives a new one via WithDateTo.
type SearchRequest struct {
	UserText string    `json:"userText"`
	Country  string    `json:"country"` // ISO-2 code or "ALL"
	DateFrom time.Time `json:"dateFrom"`
	DateTo   time.Time `json:"dateTo"`
	Industry string    `json:"industry,omitempty"`
}

// ValidationError reports a malformed SearchRequest. It is the only error
// class that propagates to the pipeline caller.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Msg)
}

// Validate checks request invariants. Returns *ValidationError on failure.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.UserText) == "" {
		return &ValidationError{Field: "userText", Msg: "must not be empty"}
	}
	c := strings.ToUpper(strings.TrimSpace(r.Country))
	if c != "" && c != CountryAll && len(c) != 2 {
		return &ValidationError{Field: "country", Msg: "must be an ISO-2 code or ALL"}
	}
	if r.HasWindow() && r.DateFrom.After(r.DateTo) {
		return &ValidationError{Field: "dateFrom", Msg: "must not be after dateTo"}
	}
	return nil
}

// HasWindow reports whether the request carries an explicit date window.
func (r SearchRequest) HasWindow() bool {
	return !r.DateFrom.IsZero() && !r.DateTo.IsZero()
}

// Window returns the acceptable startsAt bounds for this request.
func (r SearchRequest) Window() Window {
	return Window{From: r.DateFrom, To: r.DateTo}
}

// WithDateTo returns a copy of the request with an adjusted end date.
func (r SearchRequest) WithDateTo(to time.Time) SearchRequest {
	r.DateTo = to
	return r
}

// ParseRequest builds a SearchRequest from string inputs (CLI flags, HTTP
// payloads). Dates are optional but must be well-formed when present.
func ParseRequest(userText, country, from, to, industry string) (SearchRequest, error) {
	req := SearchRequest{
		UserText: strings.TrimSpace(userText),
		Country:  strings.ToUpper(strings.TrimSpace(country)),
		Industry: strings.TrimSpace(industry),
	}
	if req.Country == "" {
		req.Country = CountryAll
	}
	var err error
	if from != "" {
		if req.DateFrom, err = time.Parse(DateLayout, from); err != nil {
			return req, &ValidationError{Field: "dateFrom", Msg: "expected YYYY-MM-DD"}
		}
	}
	if to != "" {
		if req.DateTo, err = time.Parse(DateLayout, to); err != nil {
			return req, &ValidationError{Field: "dateTo", Msg: "expected YYYY-MM-DD"}
		}
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}
