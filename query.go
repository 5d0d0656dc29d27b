package logtide

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// QueryOptions filters a log query. Zero-valued fields are omitted from the
// request.
type QueryOptions struct {
	Service string
	// Level filters by wire-level name ("debug" ... "critical").
	Level  string
	From   time.Time
	To     time.Time
	Search string
	Limit  int
	Offset int
}

// QueryResult is one page of records returned by Query.
type QueryResult struct {
	Logs   []Record `json:"logs"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// StatsOptions selects the window and bucketing of AggregatedStats.
type StatsOptions struct {
	From     time.Time
	To       time.Time
	Interval string
	Service  string
}

// StatsBucket is one time-series bucket of aggregated counts.
type StatsBucket struct {
	Bucket  string         `json:"bucket"`
	Total   int            `json:"total"`
	ByLevel map[string]int `json:"by_level"`
}

// ServiceCount pairs a service with its record count.
type ServiceCount struct {
	Service string `json:"service"`
	Count   int    `json:"count"`
}

// MessageCount pairs an error message with its occurrence count.
type MessageCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// AggregatedStats is the server's aggregated view over a query window.
type AggregatedStats struct {
	Timeseries  []StatsBucket  `json:"timeseries"`
	TopServices []ServiceCount `json:"top_services"`
	TopErrors   []MessageCount `json:"top_errors"`
}

// Query fetches records matching opts from the server. A non-2xx status or
// an undecodable response surfaces as *APIError; transport failures and
// cancellation of ctx are returned as wrapped errors.
func (c *Client) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	q := url.Values{}
	if opts.Service != "" {
		q.Set("service", opts.Service)
	}
	if opts.Level != "" {
		q.Set("level", opts.Level)
	}
	if !opts.From.IsZero() {
		q.Set("from", opts.From.UTC().Format(time.RFC3339))
	}
	if !opts.To.IsZero() {
		q.Set("to", opts.To.UTC().Format(time.RFC3339))
	}
	if opts.Search != "" {
		q.Set("q", opts.Search)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var out QueryResult
	if err := c.getJSON(ctx, "/api/v1/logs", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByTraceID returns every record sharing one trace identifier.
func (c *Client) GetByTraceID(ctx context.Context, traceID string) ([]Record, error) {
	var out QueryResult
	path := "/api/v1/logs/trace/" + url.PathEscape(traceID)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// AggregatedStats fetches the server's aggregated statistics for the window
// described by opts.
func (c *Client) AggregatedStats(ctx context.Context, opts StatsOptions) (*AggregatedStats, error) {
	q := url.Values{}
	if !opts.From.IsZero() {
		q.Set("from", opts.From.UTC().Format(time.RFC3339))
	}
	if !opts.To.IsZero() {
		q.Set("to", opts.To.UTC().Format(time.RFC3339))
	}
	if opts.Interval != "" {
		q.Set("interval", opts.Interval)
	}
	if opts.Service != "" {
		q.Set("service", opts.Service)
	}

	var out AggregatedStats
	if err := c.getJSON(ctx, "/api/v1/logs/aggregated", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs an authenticated GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.cfg.Endpoint + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read query response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
