// Package cse provides a client for the Google Programmable Search JSON API.
package cse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://customsearch.googleapis.com/customsearch/v1"

// Client performs Programmable Search queries.
type Client interface {
	Search(ctx context.Context, q Query) (*Response, error)
}

// Query holds the search parameters. Zero-valued optional fields are
// omitted from the request, which lets callers progressively relax a query.
type Query struct {
	Q            string
	Num          int
	GL           string // geolocation bias, e.g. "de"
	CR           string // country restrict, e.g. "countryDE"
	DateRestrict string // e.g. "m3" for the last three months
}

// Response is the Programmable Search result payload.
type Response struct {
	Items []Item `json:"items"`
}

// Item is a single search result.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// APIError is returned for non-2xx responses so callers can react to the
// status code (e.g. relax parameters on 400/403/429).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cse: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	cx      string
	baseURL string
	http    *http.Client
}

// NewClient creates a Programmable Search client for the given engine (cx).
func NewClient(apiKey, cx string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		cx:      cx,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, q Query) (*Response, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", q.Q)
	if q.Num > 0 {
		params.Set("num", strconv.Itoa(q.Num))
	}
	if q.GL != "" {
		params.Set("gl", q.GL)
	}
	if q.CR != "" {
		params.Set("cr", q.CR)
	}
	if q.DateRestrict != "" {
		params.Set("dateRestrict", q.DateRestrict)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "cse: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "cse: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "cse: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "cse: unmarshal response")
	}

	return &result, nil
}
